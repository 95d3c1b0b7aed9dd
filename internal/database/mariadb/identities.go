package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var mysqlQ = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ListIdentities loads every identity with its descriptors from one consistent snapshot.
func (s *Store) ListIdentities(ctx context.Context) ([]database.IdentityRecord, error) {
	tx, err := s.pool.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	rows, err := tx.QueryContext(ctx, `SELECT id, student_id, name, major, created_at FROM identities ORDER BY id`)
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
		SELECT id, identity_id, vector_json, capture_ref, created_at
		FROM descriptors
		ORDER BY identity_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d database.StoredDescriptor
		var raw []byte
		if err := rows.Scan(&d.ID, &d.IdentityID, &raw, &d.CaptureRef, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		if d.Vector, err = decodeVector(raw); err != nil {
			return nil, fmt.Errorf("decode descriptor %d: %w", d.ID, err)
		}
		if i, ok := index[d.IdentityID]; ok {
			records[i].Descriptors = append(records[i].Descriptors, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}
	return records, nil
}

// GetIdentity retrieves an identity by ID, returns nil if not found.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	query, args, err := mysqlQ.Select("id", "student_id", "name", "major", "created_at").
		From("identities").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build identity query: %w", err)
	}

	var identity database.Identity
	err = s.pool.db.QueryRowContext(ctx, query, args...).
		Scan(&identity.ID, &identity.StudentID, &identity.Name, &identity.Major, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}

// CountDescriptors returns the number of descriptors enrolled for an identity.
func (s *Store) CountDescriptors(ctx context.Context, identityID int64) (int, error) {
	var count int
	err := s.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM descriptors WHERE identity_id = ?`, identityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count descriptors: %w", err)
	}
	return count, nil
}

// InsertIdentity stores the identity row and its first descriptor in one transaction.
func (s *Store) InsertIdentity(ctx context.Context, in database.NewIdentity) (*database.Identity, error) {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO identities (student_id, name, major) VALUES (?, ?, ?)`,
		in.StudentID, in.Name, in.Major)
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("identity id: %w", err)
	}

	if _, err := insertDescriptor(ctx, tx, id, in.Descriptor); err != nil {
		return nil, err
	}

	var identity database.Identity
	err = tx.QueryRowContext(ctx, `SELECT id, student_id, name, major, created_at FROM identities WHERE id = ?`, id).
		Scan(&identity.ID, &identity.StudentID, &identity.Name, &identity.Major, &identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reload identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity: %w", err)
	}
	return &identity, nil
}

// InsertDescriptor adds another descriptor to an existing identity.
func (s *Store) InsertDescriptor(ctx context.Context, identityID int64, in database.NewDescriptor) (*database.StoredDescriptor, error) {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	d, err := insertDescriptor(ctx, tx, identityID, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit descriptor: %w", err)
	}
	return d, nil
}

func insertDescriptor(ctx context.Context, tx *sql.Tx, identityID int64, in database.NewDescriptor) (*database.StoredDescriptor, error) {
	data, err := encodeVector(in.Vector)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO descriptors (identity_id, vector_json, capture_ref) VALUES (?, ?, ?)`,
		identityID, data, in.CaptureRef)
	if err != nil {
		return nil, fmt.Errorf("insert descriptor: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("descriptor id: %w", err)
	}

	d := database.StoredDescriptor{
		ID:         id,
		IdentityID: identityID,
		Vector:     append([]float32(nil), in.Vector...),
		CaptureRef: in.CaptureRef,
	}
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM descriptors WHERE id = ?`, id).Scan(&d.CreatedAt); err != nil {
		return nil, fmt.Errorf("reload descriptor: %w", err)
	}
	return &d, nil
}

// encodeVector renders a descriptor as a JSON array for the vector_json column.
func encodeVector(v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, errors.New("empty descriptor")
	}
	return json.Marshal(v)
}

// decodeVector parses a vector_json value. Anything but a non-empty array of numbers is rejected.
func decodeVector(raw []byte) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, errors.New("empty descriptor")
	}
	return v, nil
}
