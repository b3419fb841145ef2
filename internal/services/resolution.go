package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resolution is a requested status change.
type Resolution struct {
	Status      string
	Notes       string
	ActionTaken string
}

// Resolve moves a case to a new status. Approving a contribution applies its
// changes and closing a report with a delete action soft-deletes the
// subject; either happens in the same transaction as the status write. The
// author is notified after commit.
func (s *CaseService) Resolve(ctx context.Context, caller identity.Identity, kind models.CaseKind, id uuid.UUID, req Resolution) (*models.Case, error) {
	if !caller.Privileged() {
		return nil, ErrNotAuthorized
	}
	target, ok := NormalizeStatus(kind, req.Status)
	if !ok {
		return nil, transitionErrorf("status %q is not valid for %s", req.Status, kind)
	}

	action := ""
	if kind.IsReport() {
		a, err := normalizeAction(kind, target, req.ActionTaken)
		if err != nil {
			return nil, err
		}
		action = a
	} else if req.ActionTaken != "" && req.ActionTaken != ActionNone {
		return nil, transitionErrorf("contributions take no action")
	}

	notes, err := s.sanitize("notes", req.Notes)
	if err != nil {
		return nil, err
	}
	if notes == "" && target.IsTerminal() {
		notes = DefaultResolutionNote
	}

	now := s.clock()
	cutoff := now.Add(-s.staleAfter)

	var resolved *models.Case
	var previous models.CaseStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(tx, kind, id)
		if err != nil {
			return err
		}
		if !s.canModerate(current, caller, now) {
			return ErrNotAuthorized
		}
		if current.Status.IsTerminal() {
			return transitionErrorf("case is already %s", current.Status)
		}
		if current.Status == target {
			return transitionErrorf("case is already %s", target)
		}
		previous = current.Status

		updates := map[string]any{
			"status":     target,
			"updated_at": now,
		}
		if notes != "" {
			updates["resolution_notes"] = notes
		}
		if target.IsTerminal() {
			updates["resolved_by"] = caller.UserID
			updates["resolved_at"] = now
			if kind.IsReport() {
				updates["action_taken"] = action
			}
		}

		query := tx.Table(kind.Table()).Where("id = ? AND status = ?", id, current.Status)
		if !caller.IsAdmin {
			query = query.Where("(assigned_to IS NULL OR assigned_to = ? OR assigned_at < ?)", caller.UserID, cutoff)
		}
		result := query.Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("resolve %s %s: %w", kind, id, result.Error)
		}
		if result.RowsAffected == 0 {
			return transitionErrorf("case changed while resolving, reload and try again")
		}

		if kind == models.KindContribution && target == models.StatusApproved {
			if err := applyContribution(tx, current); err != nil {
				return err
			}
		}
		if err := softDeleteSubject(tx, current, action); err != nil {
			return err
		}

		resolved, err = s.load(tx, kind, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrApplyFailed) {
			slog.Warn("contribution approval rolled back",
				"case_id", id.String(), "case_kind", string(kind), "user_id", caller.UserID.String(), "error", err)
		}
		return nil, err
	}

	slog.Info("case status changed",
		"case_id", id.String(), "case_kind", string(kind), "user_id", caller.UserID.String(),
		"from", string(previous), "to", string(target), "action", action)

	s.send(ctx, notify.Message{
		Recipient: resolved.AuthorID,
		Actor:     &caller.UserID,
		Type:      models.NotificationCaseStatus,
		CaseKind:  kind,
		CaseID:    resolved.ID,
		Status:    resolved.Status,
		Text:      statusMessage(resolved),
	})
	return resolved, nil
}

func softDeleteSubject(tx *gorm.DB, c *models.Case, action string) error {
	var model any
	switch action {
	case ActionDeleteComment:
		model = &models.Comment{}
	case ActionDeleteReview:
		model = &models.Review{}
	default:
		return nil
	}
	rowID, err := strconv.ParseUint(c.SubjectID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid subject id %q: %w", c.SubjectID, err)
	}
	// Already deleted subjects match no row; that is fine.
	if err := tx.Delete(model, rowID).Error; err != nil {
		return fmt.Errorf("delete %s %d: %w", c.SubjectType, rowID, err)
	}
	return nil
}

func statusMessage(c *models.Case) string {
	subject := c.SubjectType + " #" + c.SubjectID
	if c.Kind == models.KindContribution {
		switch c.Status {
		case models.StatusApproved:
			return "Your contribution to " + subject + " was approved."
		case models.StatusRejected:
			return "Your contribution to " + subject + " was rejected: " + c.ResolutionNotes
		case models.StatusNeedsChanges:
			return "Your contribution to " + subject + " needs changes: " + c.ResolutionNotes
		case models.StatusInReview:
			return "Your contribution to " + subject + " is being reviewed."
		}
		return "Your contribution to " + subject + " is " + string(c.Status) + " again."
	}

	switch c.Status {
	case models.StatusResolved:
		return "Thanks, your report on " + subject + " was resolved."
	case models.StatusDismissed:
		return "Your report on " + subject + " was dismissed: " + c.ResolutionNotes
	case models.StatusInReview:
		return "Your report on " + subject + " is being reviewed."
	}
	return "Your report on " + subject + " is " + string(c.Status) + " again."
}
