package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// OperatorRepository provides MariaDB-backed operator accounts.
// The table collation makes username lookups and uniqueness case-insensitive.
type OperatorRepository struct {
	pool *Pool
}

// NewOperatorRepository creates a new MariaDB operator repository
func NewOperatorRepository(pool *Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// CreateOperator inserts an account.
func (r *OperatorRepository) CreateOperator(ctx context.Context, username, passwordHash string) (*middleware.Operator, error) {
	res, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO operators (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("create operator: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("operator id: %w", err)
	}

	op := middleware.Operator{ID: id}
	err = r.pool.db.QueryRowContext(ctx, `SELECT username, password_hash, created_at FROM operators WHERE id = ?`, id).
		Scan(&op.Username, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reload operator: %w", err)
	}
	return &op, nil
}

// GetOperator retrieves an account by username, returns nil if not found
func (r *OperatorRepository) GetOperator(ctx context.Context, username string) (*middleware.Operator, error) {
	var op middleware.Operator
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM operators WHERE username = ?`, username).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
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
	if err := r.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operators`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operators: %w", err)
	}
	return n, nil
}

var _ middleware.OperatorRepository = (*OperatorRepository)(nil)
