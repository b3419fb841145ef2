package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationCaseStatus  NotificationType = "case_status"
	NotificationCaseReclaim NotificationType = "case_reclaimed"
)

// Notification is one message to one recipient.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"` // Receiver
	ActorID   *uuid.UUID       `gorm:"type:uuid" json:"actor_id,omitempty"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	CaseKind  string           `gorm:"size:30" json:"case_kind,omitempty"`
	CaseID    *uuid.UUID       `gorm:"type:uuid;index" json:"case_id,omitempty"`
	Status    string           `gorm:"size:30" json:"status,omitempty"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	IsRead    bool             `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
