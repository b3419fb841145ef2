package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter selects a page of cases. An empty Status matches every status.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// Normalize applies the default page size and clamps limit and offset.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// visibleTo scopes a case query to what caller may see in the review queue.
// Admins see everything. Moderators see unassigned cases, their own, and
// open cases whose assignment is older than the staleness window.
func visibleTo(caller identity.Identity, cutoff time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if caller.IsAdmin {
			return db
		}
		return db.Where(
			"(assigned_to IS NULL OR assigned_to = ? OR (assigned_at < ? AND status NOT IN ?))",
			caller.UserID, cutoff, terminalStatuses(),
		)
	}
}

func withStatus(kind models.CaseKind, status string) (func(db *gorm.DB) *gorm.DB, error) {
	if status == "" || status == "all" {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}
	st, ok := NormalizeStatus(kind, status)
	if !ok {
		return nil, validationErrorf("invalid status %q for %s", status, kind)
	}
	return func(db *gorm.DB) *gorm.DB { return db.Where("status = ?", st) }, nil
}

// List returns the review queue of kind as seen by a moderator or admin.
func (s *CaseService) List(ctx context.Context, caller identity.Identity, kind models.CaseKind, filter ListFilter) ([]models.Case, int64, error) {
	if !caller.Privileged() {
		return nil, 0, ErrNotAuthorized
	}
	statusScope, err := withStatus(kind, filter.Status)
	if err != nil {
		return nil, 0, err
	}
	filter.Normalize()

	query := s.db.WithContext(ctx).Table(kind.Table()).
		Scopes(visibleTo(caller, s.clock().Add(-s.staleAfter)), statusScope)
	return s.page(query, kind, filter)
}

// ListOwn returns the cases caller authored, across all statuses unless
// filtered.
func (s *CaseService) ListOwn(ctx context.Context, caller identity.Identity, kind models.CaseKind, filter ListFilter) ([]models.Case, int64, error) {
	statusScope, err := withStatus(kind, filter.Status)
	if err != nil {
		return nil, 0, err
	}
	filter.Normalize()

	query := s.db.WithContext(ctx).Table(kind.Table()).
		Where("author_id = ?", caller.UserID).
		Scopes(statusScope)
	return s.page(query, kind, filter)
}

func (s *CaseService) page(query *gorm.DB, kind models.CaseKind, filter ListFilter) ([]models.Case, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", kind, err)
	}

	cases := make([]models.Case, 0, filter.Limit)
	if err := query.Session(&gorm.Session{}).
		Order("created_at DESC").Order("id").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&cases).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", kind, err)
	}
	for i := range cases {
		cases[i].Kind = kind
	}
	return cases, total, nil
}

// Get returns one case if caller authored it or may see it in the queue.
func (s *CaseService) Get(ctx context.Context, caller identity.Identity, kind models.CaseKind, id uuid.UUID) (*models.Case, error) {
	c, err := s.load(s.db.WithContext(ctx), kind, id)
	if err != nil {
		return nil, err
	}
	if c.AuthorID == caller.UserID || s.canSee(c, caller, s.clock()) {
		return c, nil
	}
	return nil, ErrNotAuthorized
}

// canSee is the in-memory form of visibleTo.
func (s *CaseService) canSee(c *models.Case, caller identity.Identity, now time.Time) bool {
	if caller.IsAdmin {
		return true
	}
	if !caller.IsModerator {
		return false
	}
	if c.AssignedTo == nil || *c.AssignedTo == caller.UserID {
		return true
	}
	return c.IsStale(now, s.staleAfter)
}

// canModerate decides who may change a case's status. It matches queue
// visibility for moderators; admins always may.
func (s *CaseService) canModerate(c *models.Case, caller identity.Identity, now time.Time) bool {
	return s.canSee(c, caller, now)
}

// StatusCount is one row of Stats.
type StatusCount struct {
	Status models.CaseStatus `json:"status"`
	Count  int64             `json:"count"`
}

// Stats counts the cases caller can see, per status, in the kind's
// vocabulary order.
func (s *CaseService) Stats(ctx context.Context, caller identity.Identity, kind models.CaseKind) ([]StatusCount, error) {
	if !caller.Privileged() {
		return nil, ErrNotAuthorized
	}

	var rows []StatusCount
	if err := s.db.WithContext(ctx).Table(kind.Table()).
		Scopes(visibleTo(caller, s.clock().Add(-s.staleAfter))).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("stats %s: %w", kind, err)
	}

	counts := make(map[models.CaseStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	out := make([]StatusCount, 0, len(AllowedStatuses(kind)))
	for _, st := range AllowedStatuses(kind) {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out, nil
}
