package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("case or subject not found")
	ErrNotAuthorized     = errors.New("not authorized for this case")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateReport   = errors.New("you have already reported this")
	ErrSelfReport        = errors.New("you cannot report your own content")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrApplyFailed       = errors.New("could not apply contribution")
)

// AlreadyAssignedError is returned when a claim loses to another moderator.
type AlreadyAssignedError struct {
	Assignee uuid.UUID
}

func (e *AlreadyAssignedError) Error() string {
	return "case already taken by " + e.Assignee.String()
}

// ApplyFailedError reports the contribution field that could not be written.
// It matches ErrApplyFailed with errors.Is.
type ApplyFailedError struct {
	Field string
	Err   error
}

func (e *ApplyFailedError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrApplyFailed, e.Err)
	}
	return fmt.Sprintf("%s: field %s: %v", ErrApplyFailed, e.Field, e.Err)
}

func (e *ApplyFailedError) Unwrap() error { return e.Err }

func (e *ApplyFailedError) Is(target error) bool { return target == ErrApplyFailed }

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transitionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}
