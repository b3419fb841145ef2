// Package notify delivers case lifecycle messages to their recipients.
package notify

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/google/uuid"
)

// Message is one notification for one recipient.
type Message struct {
	Recipient uuid.UUID               `json:"recipient"`
	Actor     *uuid.UUID              `json:"actor,omitempty"`
	Type      models.NotificationType `json:"type"`
	CaseKind  models.CaseKind         `json:"case_kind"`
	CaseID    uuid.UUID               `json:"case_id"`
	Status    models.CaseStatus       `json:"status"`
	Text      string                  `json:"text"`
}

// Notifier accepts messages. Implementations may deliver synchronously or
// hand off to a queue; callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
