package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantUnique     bool
		wantConstraint string
	}{
		{
			name:           "unique violation",
			err:            &pq.Error{Code: "23505", Constraint: "attendance_identity_day_key"},
			wantUnique:     true,
			wantConstraint: "attendance_identity_day_key",
		},
		{
			name:           "wrapped unique violation",
			err:            fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "identities_student_id_key"}),
			wantUnique:     true,
			wantConstraint: "identities_student_id_key",
		},
		{
			name: "foreign key violation",
			err:  &pq.Error{Code: "23503", Constraint: "attendance_identity_id_fkey"},
		},
		{
			name: "connection error",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if database.IsUniqueViolation(got) != tt.wantUnique {
				t.Fatalf("IsUniqueViolation(%v) = %v, want %v", got, !tt.wantUnique, tt.wantUnique)
			}
			if !tt.wantUnique {
				if got != tt.err {
					t.Errorf("non-unique error should pass through unchanged, got %v", got)
				}
				return
			}
			var uv *database.UniqueViolationError
			if !errors.As(got, &uv) {
				t.Fatalf("expected UniqueViolationError, got %T", got)
			}
			if uv.Constraint != tt.wantConstraint {
				t.Errorf("constraint = %q, want %q", uv.Constraint, tt.wantConstraint)
			}
			var pqErr *pq.Error
			if !errors.As(got, &pqErr) {
				t.Error("driver error should stay reachable through Unwrap")
			}
		})
	}
}
