package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// AttendanceRepository provides PostgreSQL-backed attendance ledger storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// InsertAttendance performs a single insert; the (identity_id, local_date) constraint
// rejects a second event on the same day.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, in database.NewAttendance) (*database.AttendanceEvent, error) {
	query, args, err := psql.Insert("attendance").
		Columns("identity_id", "recorded_at", "local_date", "status").
		Values(in.IdentityID, in.RecordedAt.UTC(), in.LocalDate, string(in.Status)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance insert: %w", err)
	}

	event := database.AttendanceEvent{
		IdentityID: in.IdentityID,
		RecordedAt: in.RecordedAt.UTC(),
		LocalDate:  in.LocalDate,
		Status:     in.Status,
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&event.ID); err != nil {
		return nil, fmt.Errorf("insert attendance: %w", translateError(err))
	}
	return &event, nil
}

// ListAttendance returns ledger rows joined with identity display fields, newest first.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRow, error) {
	query, args, err := database.AttendanceQuery(filter, "a.local_date::text").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var result []database.AttendanceRow
	for rows.Next() {
		var row database.AttendanceRow
		var status string
		if err := rows.Scan(&row.ID, &row.IdentityID, &row.RecordedAt, &row.LocalDate, &status,
			&row.StudentID, &row.Name); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		row.Status = database.AttendanceStatus(status)
		row.RecordedAt = row.RecordedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return result, nil
}
