package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaseKind names one table family of reviewable rows.
type CaseKind string

const (
	KindContribution  CaseKind = "contribution"
	KindContentReport CaseKind = "content_report"
	KindCommentReport CaseKind = "comment_report"
	KindReviewReport  CaseKind = "review_report"
	KindUserReport    CaseKind = "user_report"
)

var caseTables = map[CaseKind]string{
	KindContribution:  "content_contributions",
	KindContentReport: "content_reports",
	KindCommentReport: "comment_reports",
	KindReviewReport:  "review_reports",
	KindUserReport:    "user_reports",
}

// AllCaseKinds lists every kind in a stable order.
var AllCaseKinds = []CaseKind{
	KindContribution,
	KindContentReport,
	KindCommentReport,
	KindReviewReport,
	KindUserReport,
}

// ReportKinds lists the kinds stored with the Report layout.
var ReportKinds = []CaseKind{
	KindContentReport,
	KindCommentReport,
	KindReviewReport,
	KindUserReport,
}

// ParseCaseKind validates a kind against the allow-list.
func ParseCaseKind(s string) (CaseKind, bool) {
	k := CaseKind(s)
	_, ok := caseTables[k]
	return k, ok
}

// Table returns the storage table of the kind. Callers must only pass kinds
// obtained from ParseCaseKind or the constants above.
func (k CaseKind) Table() string {
	return caseTables[k]
}

func (k CaseKind) IsReport() bool {
	return k != KindContribution && k.Table() != ""
}

type CaseStatus string

const (
	StatusPending      CaseStatus = "pending"
	StatusInReview     CaseStatus = "in_review"
	StatusNeedsChanges CaseStatus = "needs_changes"
	StatusApproved     CaseStatus = "approved"
	StatusRejected     CaseStatus = "rejected"
	StatusResolved     CaseStatus = "resolved"
	StatusDismissed    CaseStatus = "dismissed"
)

// TerminalStatuses is shared by every kind; a kind only ever reaches the
// subset its vocabulary allows.
var TerminalStatuses = []CaseStatus{
	StatusApproved,
	StatusRejected,
	StatusResolved,
	StatusDismissed,
}

func (s CaseStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// CaseFields are the lifecycle columns every case table carries.
type CaseFields struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectType     string     `gorm:"size:20;not null;index:,composite:subject" json:"subject_type"`
	SubjectID       string     `gorm:"size:64;not null;index:,composite:subject" json:"subject_id"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Status          CaseStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AssignedTo      *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to"`
	AssignedAt      *time.Time `json:"assigned_at"`
	ResolvedBy      *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (f *CaseFields) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FieldChange is one proposed edit inside a contribution.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Contribution is a community edit to a catalog row.
type Contribution struct {
	CaseFields
	Changes datatypes.JSONMap `json:"changes"`
	Notes   string            `gorm:"type:text" json:"notes"`
	Sources string            `gorm:"type:text" json:"sources"`
}

func (Contribution) TableName() string { return caseTables[KindContribution] }

// Report is the row layout shared by all report tables. It has no TableName;
// callers pick the table with db.Table(kind.Table()).
type Report struct {
	CaseFields
	SubjectOwnerID *uuid.UUID `gorm:"type:uuid" json:"subject_owner_id,omitempty"`
	Reason         string     `gorm:"size:30;not null" json:"reason"`
	Description    string     `gorm:"type:text" json:"description"`
	ActionTaken    string     `gorm:"size:30" json:"action_taken,omitempty"`
}

// Case is the read view used by list, claim, release and resolve. The
// kind-specific columns are read-only so the same struct can scan any table.
type Case struct {
	CaseFields
	Kind CaseKind `gorm:"-" json:"kind"`

	Changes datatypes.JSONMap `gorm:"->" json:"changes,omitempty"`
	Notes   string            `gorm:"->" json:"notes,omitempty"`
	Sources string            `gorm:"->" json:"sources,omitempty"`

	SubjectOwnerID *uuid.UUID `gorm:"->" json:"subject_owner_id,omitempty"`
	Reason         string     `gorm:"->" json:"reason,omitempty"`
	Description    string     `gorm:"->" json:"description,omitempty"`
	ActionTaken    string     `gorm:"->" json:"action_taken,omitempty"`
}

// IsStale reports whether the case has been held longer than window at now.
// The boundary is strict: a case assigned exactly window ago is not stale.
func (c *Case) IsStale(now time.Time, window time.Duration) bool {
	if c.AssignedTo == nil || c.AssignedAt == nil || c.Status.IsTerminal() {
		return false
	}
	return c.AssignedAt.Before(now.Add(-window))
}

func (c *Contribution) AsCase() *Case {
	return &Case{
		CaseFields: c.CaseFields,
		Kind:       KindContribution,
		Changes:    c.Changes,
		Notes:      c.Notes,
		Sources:    c.Sources,
	}
}

func (r *Report) AsCase(kind CaseKind) *Case {
	return &Case{
		CaseFields:     r.CaseFields,
		Kind:           kind,
		SubjectOwnerID: r.SubjectOwnerID,
		Reason:         r.Reason,
		Description:    r.Description,
		ActionTaken:    r.ActionTaken,
	}
}
