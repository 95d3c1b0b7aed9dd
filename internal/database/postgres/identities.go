package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository provides PostgreSQL-backed identity and descriptor storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// ListIdentities loads every identity with its descriptors from one consistent snapshot.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.IdentityRecord, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	rows, err := tx.QueryContext(ctx, `
		SELECT id, student_id, name, major, created_at
		FROM identities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}

	var records []database.IdentityRecord
	index := make(map[int64]int)
	for rows.Next() {
		var id database.Identity
		if err := rows.Scan(&id.ID, &id.StudentID, &id.Name, &id.Major, &id.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		index[id.ID] = len(records)
		records = append(records, database.IdentityRecord{Identity: id})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx, `
		SELECT id, identity_id, vector, capture_ref, created_at
		FROM descriptors
		ORDER BY identity_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, err
		}
		i, ok := index[d.IdentityID]
		if !ok {
			continue
		}
		records[i].Descriptors = append(records[i].Descriptors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}

	return records, nil
}

// GetIdentity retrieves an identity by ID, returns nil if not found.
func (r *IdentityRepository) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	var identity database.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_id, name, major, created_at
		FROM identities
		WHERE id = $1
	`, id).Scan(&identity.ID, &identity.StudentID, &identity.Name, &identity.Major, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// CountDescriptors returns the number of descriptors enrolled for an identity.
func (r *IdentityRepository) CountDescriptors(ctx context.Context, identityID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM descriptors WHERE identity_id = $1", identityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count descriptors: %w", err)
	}
	return count, nil
}

// InsertIdentity stores the identity row and its first descriptor in one transaction.
func (r *IdentityRepository) InsertIdentity(ctx context.Context, in database.NewIdentity) (*database.Identity, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	identity := database.Identity{StudentID: in.StudentID, Name: in.Name, Major: in.Major}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO identities (student_id, name, major)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, in.StudentID, in.Name, in.Major).Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", translateError(err))
	}

	if _, err := insertDescriptor(ctx, tx, identity.ID, in.Descriptor); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity: %w", err)
	}
	return &identity, nil
}

// InsertDescriptor adds another descriptor to an existing identity.
func (r *IdentityRepository) InsertDescriptor(ctx context.Context, identityID int64, in database.NewDescriptor) (*database.StoredDescriptor, error) {
	return insertDescriptor(ctx, r.pool.DB(), identityID, in)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertDescriptor(ctx context.Context, q queryRower, identityID int64, in database.NewDescriptor) (*database.StoredDescriptor, error) {
	d := database.StoredDescriptor{
		IdentityID: identityID,
		Vector:     append([]float32(nil), in.Vector...),
		CaptureRef: in.CaptureRef,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO descriptors (identity_id, vector, capture_ref)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, identityID, pgvector.NewVector(in.Vector), in.CaptureRef).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert descriptor: %w", translateError(err))
	}
	return &d, nil
}

func scanDescriptor(rows *sql.Rows) (database.StoredDescriptor, error) {
	var d database.StoredDescriptor
	var vec pgvector.Vector
	if err := rows.Scan(&d.ID, &d.IdentityID, &vec, &d.CaptureRef, &d.CreatedAt); err != nil {
		return d, fmt.Errorf("scan descriptor: %w", err)
	}
	d.Vector = vec.Slice()
	return d, nil
}
