package database

import (
	sq "github.com/Masterminds/squirrel"
)

// AttendanceQuery builds the dashboard listing shared by the SQL backends.
// localDateExpr renders the local_date column as YYYY-MM-DD text in the backend's dialect.
// The caller sets the placeholder format.
func AttendanceQuery(filter AttendanceFilter, localDateExpr string) sq.SelectBuilder {
	q := sq.Select(
		"a.id", "a.identity_id", "a.recorded_at", localDateExpr, "a.status",
		"i.student_id", "i.name",
	).
		From("attendance a").
		Join("identities i ON i.id = a.identity_id").
		OrderBy("a.recorded_at DESC", "a.id DESC")

	if filter.IdentityID != 0 {
		q = q.Where(sq.Eq{"a.identity_id": filter.IdentityID})
	}
	if filter.FromDate != "" {
		q = q.Where(sq.GtOrEq{"a.local_date": filter.FromDate})
	}
	if filter.ToDate != "" {
		q = q.Where(sq.LtOrEq{"a.local_date": filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}
