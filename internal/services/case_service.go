package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/notify"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultStaleAfter is how long an assignment holds before other moderators
// may see and take the case.
const DefaultStaleAfter = 15 * 24 * time.Hour

// DefaultResolutionNote is stored when a case is closed without notes.
const DefaultResolutionNote = "No resolution notes provided."

const (
	maxFreeText          = 2000
	minOtherReasonLength = 10
)

var reportReasons = map[string]bool{
	"spam":       true,
	"offensive":  true,
	"spoiler":    true,
	"inaccurate": true,
	"harassment": true,
	"copyright":  true,
	"other":      true,
}

// CaseService runs the contribution and report lifecycle.
type CaseService struct {
	db         *gorm.DB
	notifier   notify.Notifier
	staleAfter time.Duration
	now        func() time.Time
	policy     *bluemonday.Policy
}

type Option func(*CaseService)

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(s *CaseService) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *CaseService) { s.now = now }
}

func NewCaseService(db *gorm.DB, notifier notify.Notifier, opts ...Option) *CaseService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &CaseService{
		db:         db,
		notifier:   notifier,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		policy:     bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StaleAfter returns the configured staleness window.
func (s *CaseService) StaleAfter() time.Duration {
	return s.staleAfter
}

func (s *CaseService) clock() time.Time {
	return s.now().UTC()
}

func (s *CaseService) load(db *gorm.DB, kind models.CaseKind, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	if err := db.Table(kind.Table()).Where("id = ?", id).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	c.Kind = kind
	return &c, nil
}

// sanitize strips markup from user text and bounds its length. The policy
// escapes what it keeps, and stored text is plain, so entities are decoded
// before measuring.
func (s *CaseService) sanitize(field, text string) (string, error) {
	clean := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
	if utf8.RuneCountInString(clean) > maxFreeText {
		return "", validationErrorf("%s must be at most %d characters", field, maxFreeText)
	}
	return clean, nil
}

// CreateContribution records a proposed edit to a catalog row.
func (s *CaseService) CreateContribution(ctx context.Context, caller identity.Identity, req *dto.CreateContributionRequest) (*models.Case, error) {
	subject, ok := catalog.Lookup(req.SubjectType)
	if !ok {
		return nil, validationErrorf("unknown subject_type %q", req.SubjectType)
	}
	rowID, err := parseRowID(req.SubjectID.String())
	if err != nil {
		return nil, err
	}
	changes, err := s.buildChanges(subject, req.Changes)
	if err != nil {
		return nil, err
	}
	notes, err := s.sanitize("notes", req.Notes)
	if err != nil {
		return nil, err
	}
	sources, err := s.sanitize("sources", req.Sources)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Table(subject.Table).Where("id = ?", rowID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check %s %d: %w", subject.Type, rowID, err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	now := s.clock()
	contribution := models.Contribution{
		CaseFields: models.CaseFields{
			SubjectType: subject.Type,
			SubjectID:   strconv.FormatUint(rowID, 10),
			AuthorID:    caller.UserID,
			Status:      models.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Changes: changes,
		Notes:   notes,
		Sources: sources,
	}
	if err := db.Create(&contribution).Error; err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}

	slog.Info("contribution created",
		"case_id", contribution.ID.String(), "case_kind", string(models.KindContribution),
		"user_id", caller.UserID.String(), "subject", subject.Type+":"+contribution.SubjectID,
		"fields", len(changes))
	return contribution.AsCase(), nil
}

// ResubmitContribution lets the author answer a needs_changes review. The
// case returns to pending and keeps its assignee.
func (s *CaseService) ResubmitContribution(ctx context.Context, caller identity.Identity, id uuid.UUID, req *dto.ResubmitContributionRequest) (*models.Case, error) {
	db := s.db.WithContext(ctx)
	current, err := s.load(db, models.KindContribution, id)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != caller.UserID {
		return nil, ErrNotAuthorized
	}
	if current.Status != models.StatusNeedsChanges {
		return nil, transitionErrorf("only contributions in %s can be resubmitted", models.StatusNeedsChanges)
	}

	subject, ok := catalog.Lookup(current.SubjectType)
	if !ok {
		return nil, validationErrorf("unknown subject_type %q", current.SubjectType)
	}
	changes, err := s.buildChanges(subject, req.Changes)
	if err != nil {
		return nil, err
	}
	notes, err := s.sanitize("notes", req.Notes)
	if err != nil {
		return nil, err
	}
	sources, err := s.sanitize("sources", req.Sources)
	if err != nil {
		return nil, err
	}

	result := db.Model(&models.Contribution{}).
		Where("id = ? AND author_id = ? AND status = ?", id, caller.UserID, models.StatusNeedsChanges).
		Updates(map[string]any{
			"changes":    changes,
			"notes":      notes,
			"sources":    sources,
			"status":     models.StatusPending,
			"updated_at": s.clock(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to resubmit contribution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, transitionErrorf("contribution changed while resubmitting")
	}

	updated, err := s.load(db, models.KindContribution, id)
	if err != nil {
		return nil, err
	}
	if updated.AssignedTo != nil {
		s.send(ctx, notify.Message{
			Recipient: *updated.AssignedTo,
			Actor:     &caller.UserID,
			Type:      models.NotificationCaseStatus,
			CaseKind:  models.KindContribution,
			CaseID:    updated.ID,
			Status:    updated.Status,
			Text:      fmt.Sprintf("A contribution to %s #%s you are reviewing was resubmitted.", updated.SubjectType, updated.SubjectID),
		})
	}
	return updated, nil
}

func (s *CaseService) buildChanges(subject *catalog.Subject, changes map[string]models.FieldChange) (datatypes.JSONMap, error) {
	if len(changes) == 0 {
		return nil, validationErrorf("changes must not be empty")
	}
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := subject.ValidateFieldNames(names); err != nil {
		return nil, validationErrorf("%v", err)
	}

	out := make(datatypes.JSONMap, len(changes))
	for _, name := range names {
		change := changes[name]
		out[name] = map[string]any{"old": change.Old, "new": change.New}
	}
	return out, nil
}

// CreateReport files a report of the given kind. A reporter may report a
// subject once, and never their own comment, review or account.
func (s *CaseService) CreateReport(ctx context.Context, caller identity.Identity, kind models.CaseKind, req *dto.CreateReportRequest) (*models.Case, error) {
	if !kind.IsReport() {
		return nil, validationErrorf("unknown report kind %q", kind)
	}
	reason := strings.ToLower(strings.TrimSpace(req.Reason))
	if !reportReasons[reason] {
		return nil, validationErrorf("invalid reason %q", req.Reason)
	}
	description, err := s.sanitize("description", req.Description)
	if err != nil {
		return nil, err
	}
	if reason == "other" && utf8.RuneCountInString(description) < minOtherReasonLength {
		return nil, validationErrorf("description must be at least %d characters when reason is other", minOtherReasonLength)
	}

	db := s.db.WithContext(ctx)
	target, err := s.resolveReportSubject(db, kind, req.SubjectType, req.SubjectID.String())
	if err != nil {
		return nil, err
	}
	if target.owner != nil && *target.owner == caller.UserID {
		return nil, ErrSelfReport
	}

	var existing int64
	if err := db.Table(kind.Table()).
		Where("subject_type = ? AND subject_id = ? AND author_id = ?", target.subjectType, target.subjectID, caller.UserID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check duplicate report: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateReport
	}

	now := s.clock()
	report := models.Report{
		CaseFields: models.CaseFields{
			SubjectType: target.subjectType,
			SubjectID:   target.subjectID,
			AuthorID:    caller.UserID,
			Status:      models.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		SubjectOwnerID: target.owner,
		Reason:         reason,
		Description:    description,
	}
	if err := db.Table(kind.Table()).Create(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateReport
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	slog.Info("report created",
		"case_id", report.ID.String(), "case_kind", string(kind),
		"user_id", caller.UserID.String(), "subject", target.subjectType+":"+target.subjectID,
		"reason", reason)
	return report.AsCase(kind), nil
}

type reportSubject struct {
	subjectType string
	subjectID   string
	owner       *uuid.UUID
}

// resolveReportSubject checks that the reported entity exists and finds
// its owner.
func (s *CaseService) resolveReportSubject(db *gorm.DB, kind models.CaseKind, subjectType, subjectID string) (*reportSubject, error) {
	switch kind {
	case models.KindContentReport:
		subject, ok := catalog.Lookup(subjectType)
		if !ok {
			return nil, validationErrorf("unknown subject_type %q", subjectType)
		}
		rowID, err := parseRowID(subjectID)
		if err != nil {
			return nil, err
		}
		var count int64
		if err := db.Table(subject.Table).Where("id = ?", rowID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check %s %d: %w", subject.Type, rowID, err)
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return &reportSubject{subjectType: subject.Type, subjectID: strconv.FormatUint(rowID, 10)}, nil

	case models.KindCommentReport:
		if err := expectSubjectType(subjectType, "comment"); err != nil {
			return nil, err
		}
		rowID, err := parseRowID(subjectID)
		if err != nil {
			return nil, err
		}
		var comment models.Comment
		if err := db.First(&comment, rowID).Error; err != nil {
			return nil, notFoundOr(err)
		}
		return &reportSubject{subjectType: "comment", subjectID: strconv.FormatUint(rowID, 10), owner: &comment.AuthorID}, nil

	case models.KindReviewReport:
		if err := expectSubjectType(subjectType, "review"); err != nil {
			return nil, err
		}
		rowID, err := parseRowID(subjectID)
		if err != nil {
			return nil, err
		}
		var review models.Review
		if err := db.First(&review, rowID).Error; err != nil {
			return nil, notFoundOr(err)
		}
		return &reportSubject{subjectType: "review", subjectID: strconv.FormatUint(rowID, 10), owner: &review.AuthorID}, nil

	case models.KindUserReport:
		if err := expectSubjectType(subjectType, "user"); err != nil {
			return nil, err
		}
		userID, err := uuid.Parse(strings.TrimSpace(subjectID))
		if err != nil {
			return nil, validationErrorf("subject_id must be a user id")
		}
		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return nil, notFoundOr(err)
		}
		return &reportSubject{subjectType: "user", subjectID: user.ID.String(), owner: &user.ID}, nil
	}
	return nil, validationErrorf("unknown report kind %q", kind)
}

func expectSubjectType(got, want string) error {
	if got != "" && got != want {
		return validationErrorf("subject_type must be %q", want)
	}
	return nil
}

func parseRowID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, validationErrorf("subject_id must be a positive integer")
	}
	return id, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// send hands a message to the notifier. Failures are logged and never
// returned: the case transition has already committed.
func (s *CaseService) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Notify(ctx, msg); err != nil {
		slog.Error("notification failed", "error", err,
			"case_id", msg.CaseID.String(), "case_kind", string(msg.CaseKind),
			"user_id", msg.Recipient.String(), "action", string(msg.Type))
	}
}
