package mariadb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// InsertAttendance performs a single insert; the (identity_id, local_date) key
// rejects a second event on the same day.
func (s *Store) InsertAttendance(ctx context.Context, in database.NewAttendance) (*database.AttendanceEvent, error) {
	recordedAt := in.RecordedAt.UTC()
	query, args, err := mysqlQ.Insert("attendance").
		Columns("identity_id", "recorded_at", "local_date", "status").
		Values(in.IdentityID, recordedAt, in.LocalDate, string(in.Status)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance insert: %w", err)
	}

	res, err := s.pool.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("attendance id: %w", err)
	}

	return &database.AttendanceEvent{
		ID:         id,
		IdentityID: in.IdentityID,
		RecordedAt: recordedAt,
		LocalDate:  in.LocalDate,
		Status:     in.Status,
	}, nil
}

// ListAttendance returns ledger rows joined with identity display fields, newest first.
func (s *Store) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRow, error) {
	query, args, err := database.AttendanceQuery(filter, "DATE_FORMAT(a.local_date, '%Y-%m-%d')").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}

	rows, err := s.pool.db.QueryContext(ctx, query, args...)
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
