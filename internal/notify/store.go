package notify

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store persists messages as notification rows and serves the inbox.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Notify(ctx context.Context, msg Message) error {
	caseID := msg.CaseID
	row := models.Notification{
		UserID:   msg.Recipient,
		ActorID:  msg.Actor,
		Type:     msg.Type,
		CaseKind: string(msg.CaseKind),
		CaseID:   &caseID,
		Status:   string(msg.Status),
		Message:  msg.Text,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// List returns the newest notifications of a user and the unread count.
func (s *Store) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, int64, error) {
	var rows []models.Notification
	var unread int64

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, unread, nil
}

// MarkRead flags one notification of the user as read. It reports false when
// the notification does not belong to the user.
func (s *Store) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
