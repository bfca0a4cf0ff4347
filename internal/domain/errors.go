package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can use errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidStage     = errors.New("invalid stage for action")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("booking conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrForbidden        = errors.New("forbidden")
	ErrRateLimited      = errors.New("too many requests")
	// ErrStageChanged is returned by a repository when a stage check-and-set finds the row
	// no longer in the expected stage.
	ErrStageChanged = errors.New("stage changed concurrently")
	// ErrAlreadyExists is returned when a unique record (block per request, event per
	// request) already exists.
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError lists every problem found in a caller's input.
type ValidationError struct {
	Problems []string
}

// NewValidationError returns a ValidationError for the given problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StageError reports an action attempted from a stage where it is not legal.
type StageError struct {
	RequestID string
	Stage     Stage
	Action    Action
}

func (e *StageError) Error() string {
	return fmt.Sprintf("request %s: cannot %s from stage %s", e.RequestID, e.Action, e.Stage)
}

func (e *StageError) Unwrap() error { return ErrInvalidStage }

// ConflictError carries the confirmed bookings that overlap the candidate range.
type ConflictError struct {
	Candidate TimeRange
	Conflicts []TimeRange
}

func (e *ConflictError) Error() string {
	labels := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		labels = append(labels, c.String())
	}
	return fmt.Sprintf("booking conflict: %s overlaps %s", e.Candidate.String(), strings.Join(labels, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
