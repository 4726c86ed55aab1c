package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for session operations. All are caller errors: the
// session stays resumable after any of them.
var (
	// ErrUnknownSession indicates the token doesn't map to a session.
	ErrUnknownSession = errors.New("unknown session")

	// ErrMissingToken indicates an empty session token.
	ErrMissingToken = errors.New("session token required")

	// ErrNoStoredOptions indicates a selection for a category with no
	// stored candidates.
	ErrNoStoredOptions = errors.New("no stored options for category")

	// ErrNotSuspended indicates a resume against a session with no
	// pending review.
	ErrNotSuspended = errors.New("session is not waiting for review")

	// ErrInvalidTrip indicates the trip context failed validation.
	ErrInvalidTrip = errors.New("invalid trip context")

	// ErrEmptyResearchPlan indicates a follow-up request whose plan
	// names no category.
	ErrEmptyResearchPlan = errors.New("research plan must name at least one category")
)

// SelectionError reports an out-of-range selection index.
type SelectionError struct {
	// Category is the candidate category being selected from.
	Category string
	// Index is the offending index.
	Index int
	// Length is the stored candidate list length.
	Length int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection index %d out of range for %s (have %d options)",
		e.Index, e.Category, e.Length)
}
