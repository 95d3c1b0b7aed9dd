package database

import (
	"errors"
	"fmt"
)

// ErrUniqueViolation is matched (via errors.Is) by every store error caused by a
// unique constraint, independent of the driver's error-code vocabulary.
var ErrUniqueViolation = errors.New("unique constraint violation")

// UniqueViolationError reports which constraint rejected a write.
type UniqueViolationError struct {
	Constraint string // constraint or key name as reported by the store, may be empty
	Err        error  // underlying driver error
}

func (e *UniqueViolationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("unique constraint violation on %s: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("unique constraint violation: %v", e.Err)
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUniqueViolation) true for any UniqueViolationError.
func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}

// IsUniqueViolation reports whether err was caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
