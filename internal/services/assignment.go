package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/notify"
	"github.com/google/uuid"
)

// Claim assigns an open case to caller. The write is conditional on the
// assignment caller observed, so of two concurrent claims exactly one
// matches a row; the other gets AlreadyAssignedError naming the winner.
// A case held longer than the staleness window may be taken over.
func (s *CaseService) Claim(ctx context.Context, caller identity.Identity, kind models.CaseKind, id uuid.UUID) (*models.Case, error) {
	if !caller.Privileged() {
		return nil, ErrNotAuthorized
	}

	db := s.db.WithContext(ctx)
	current, err := s.load(db, kind, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, transitionErrorf("case is already %s", current.Status)
	}

	now := s.clock()
	cutoff := now.Add(-s.staleAfter)

	query := db.Table(kind.Table()).Where("id = ? AND status NOT IN ?", id, terminalStatuses())
	var displaced *uuid.UUID
	switch {
	case current.AssignedTo == nil:
		query = query.Where("assigned_to IS NULL")
	case *current.AssignedTo == caller.UserID:
		return current, nil
	case current.IsStale(now, s.staleAfter):
		displaced = current.AssignedTo
		query = query.Where("assigned_to = ? AND assigned_at < ?", *current.AssignedTo, cutoff)
	default:
		return nil, &AlreadyAssignedError{Assignee: *current.AssignedTo}
	}

	result := query.Updates(map[string]any{
		"assigned_to": caller.UserID,
		"assigned_at": now,
		"updated_at":  now,
	})
	if result.Error != nil {
		return nil, fmt.Errorf("claim %s %s: %w", kind, id, result.Error)
	}

	latest, err := s.load(db, kind, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		if err := claimConflict(latest, caller); err != nil {
			return nil, err
		}
		return latest, nil
	}

	slog.Info("case claimed",
		"case_id", id.String(), "case_kind", string(kind), "user_id", caller.UserID.String(),
		"reclaimed_from", uuidString(displaced))

	if displaced != nil {
		s.send(ctx, notify.Message{
			Recipient: *displaced,
			Actor:     &caller.UserID,
			Type:      models.NotificationCaseReclaim,
			CaseKind:  kind,
			CaseID:    id,
			Status:    latest.Status,
			Text:      fmt.Sprintf("A %s you left idle for over %s was taken over by another moderator.", kindLabel(kind), windowLabel(s.staleAfter)),
		})
	}
	return latest, nil
}

// claimConflict explains why a conditional claim matched no row.
func claimConflict(latest *models.Case, caller identity.Identity) error {
	switch {
	case latest.Status.IsTerminal():
		return transitionErrorf("case is already %s", latest.Status)
	case latest.AssignedTo == nil:
		// Released between our read and write; the caller may retry.
		return transitionErrorf("case assignment changed, try again")
	case *latest.AssignedTo == caller.UserID:
		return nil
	default:
		return &AlreadyAssignedError{Assignee: *latest.AssignedTo}
	}
}

// Release clears the assignment of an open case. Only the assignee or an
// admin may release; closed cases keep their assignee.
func (s *CaseService) Release(ctx context.Context, caller identity.Identity, kind models.CaseKind, id uuid.UUID) (*models.Case, error) {
	db := s.db.WithContext(ctx)
	current, err := s.load(db, kind, id)
	if err != nil {
		return nil, err
	}

	holder := current.AssignedTo
	if !caller.IsAdmin && (holder == nil || *holder != caller.UserID) {
		return nil, ErrNotAuthorized
	}
	if current.Status.IsTerminal() {
		return nil, transitionErrorf("case is already %s", current.Status)
	}
	if holder == nil {
		return current, nil
	}

	now := s.clock()
	result := db.Table(kind.Table()).
		Where("id = ? AND assigned_to = ? AND status NOT IN ?", id, *holder, terminalStatuses()).
		Updates(map[string]any{
			"assigned_to": nil,
			"assigned_at": nil,
			"updated_at":  now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("release %s %s: %w", kind, id, result.Error)
	}

	latest, err := s.load(db, kind, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		if latest.Status.IsTerminal() {
			return nil, transitionErrorf("case is already %s", latest.Status)
		}
		if !caller.IsAdmin {
			return nil, ErrNotAuthorized
		}
		return nil, transitionErrorf("case assignment changed, try again")
	}

	slog.Info("case released",
		"case_id", id.String(), "case_kind", string(kind), "user_id", caller.UserID.String(),
		"released_from", holder.String())

	if *holder != caller.UserID {
		s.send(ctx, notify.Message{
			Recipient: *holder,
			Actor:     &caller.UserID,
			Type:      models.NotificationCaseReclaim,
			CaseKind:  kind,
			CaseID:    id,
			Status:    latest.Status,
			Text:      fmt.Sprintf("An admin released a %s assigned to you.", kindLabel(kind)),
		})
	}
	return latest, nil
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func windowLabel(d time.Duration) string {
	day := 24 * time.Hour
	if d == day {
		return "1 day"
	}
	if d > day && d%day == 0 {
		return fmt.Sprintf("%d days", d/day)
	}
	return d.String()
}

func kindLabel(kind models.CaseKind) string {
	switch kind {
	case models.KindContribution:
		return "contribution"
	case models.KindContentReport:
		return "content report"
	case models.KindCommentReport:
		return "comment report"
	case models.KindReviewReport:
		return "review report"
	case models.KindUserReport:
		return "user report"
	}
	return "case"
}
