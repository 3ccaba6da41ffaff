package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates caller supplied invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict indicates an illegal transition or a stale version.
	ErrStateConflict = errors.New("state conflict")
	// ErrDuplicate indicates the request was already processed.
	ErrDuplicate = errors.New("duplicate request")
	// ErrForbidden indicates the actor lacks the role for the action.
	ErrForbidden = errors.New("forbidden")
)
