package dto

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
)

// SubjectRef is a subject id sent either as a JSON string ("42", a user
// UUID) or as a bare number (42).
type SubjectRef string

func (r *SubjectRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = SubjectRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("subject_id must be a string or a number")
	}
	*r = SubjectRef(n.String())
	return nil
}

func (r SubjectRef) String() string { return string(r) }

type CreateContributionRequest struct {
	SubjectType string                        `json:"subject_type"`
	SubjectID   SubjectRef                    `json:"subject_id"`
	Changes     map[string]models.FieldChange `json:"changes"`
	Notes       string                        `json:"notes"`
	Sources     string                        `json:"sources"`
}

type ResubmitContributionRequest struct {
	Changes map[string]models.FieldChange `json:"changes"`
	Notes   string                        `json:"notes"`
	Sources string                        `json:"sources"`
}

type CreateReportRequest struct {
	SubjectType string     `json:"subject_type"`
	SubjectID   SubjectRef `json:"subject_id"`
	Reason      string     `json:"reason"`
	Description string     `json:"description"`
}

type ResolveCaseRequest struct {
	Status      string `json:"status"`
	Notes       string `json:"notes"`
	ActionTaken string `json:"action_taken"`
}

type CreatedResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type CaseListResponse struct {
	Cases  []models.Case `json:"cases"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
