package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidParent    = errors.New("invalid parent comment")
	ErrParentDeleted    = fmt.Errorf("%w: parent comment was deleted", ErrInvalidParent)
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrReactionConflict = errors.New("reaction changed concurrently")
	ErrUnavailable      = errors.New("temporarily unavailable")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Known reports whether err is one of the domain sentinels. Anything else
// coming out of storage or a collaborator is treated as transient.
func Known(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrInvalidParent, ErrNotFound, ErrPermissionDenied,
		ErrUnauthenticated, ErrReactionConflict, ErrUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Unavailable wraps an infrastructure failure so callers can retry it.
// Domain errors and nil pass through unchanged.
func Unavailable(op string, err error) error {
	if err == nil || Known(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
