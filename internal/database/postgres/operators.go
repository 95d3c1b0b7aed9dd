package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// OperatorRepository provides PostgreSQL-backed operator accounts
type OperatorRepository struct {
	pool *Pool
}

// NewOperatorRepository creates a new PostgreSQL operator repository
func NewOperatorRepository(pool *Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// CreateOperator inserts an account. Usernames are unique regardless of case.
func (r *OperatorRepository) CreateOperator(ctx context.Context, username, passwordHash string) (*middleware.Operator, error) {
	query := `
		INSERT INTO operators (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at
	`

	var op middleware.Operator
	err := r.pool.QueryRow(ctx, query, username, passwordHash).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create operator: %w", translateError(err))
	}
	return &op, nil
}

// GetOperator retrieves an account by username, returns nil if not found
func (r *OperatorRepository) GetOperator(ctx context.Context, username string) (*middleware.Operator, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM operators
		WHERE lower(username) = lower($1)
	`

	var op middleware.Operator
	err := r.pool.QueryRow(ctx, query, username).Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return &op, nil
}

// CountOperators returns the number of registered accounts
func (r *OperatorRepository) CountOperators(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM operators").Scan(&n); err != nil {
		return 0, fmt.Errorf("count operators: %w", err)
	}
	return n, nil
}

var _ middleware.OperatorRepository = (*OperatorRepository)(nil)
