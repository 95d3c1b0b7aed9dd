package postgres

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// translateError maps driver errors onto store-independent errors.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return &database.UniqueViolationError{Constraint: pqErr.Constraint, Err: err}
	}
	return err
}
