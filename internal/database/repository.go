package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled identities and their descriptors
type IdentityReader interface {
	// ListIdentities returns every identity with its descriptors, ordered by identity ID
	// and then descriptor ID (enrollment order)
	ListIdentities(ctx context.Context) ([]IdentityRecord, error)
	// GetIdentity retrieves an identity by ID, returns nil if not found
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// CountDescriptors returns the number of descriptors enrolled for an identity
	CountDescriptors(ctx context.Context, identityID int64) (int, error)
}

// IdentityWriter provides write access to identities and descriptors
type IdentityWriter interface {
	IdentityReader

	// InsertIdentity stores a new identity and its first descriptor atomically.
	// Returns an error matching ErrUniqueViolation when the student ID is taken.
	InsertIdentity(ctx context.Context, identity NewIdentity) (*Identity, error)

	// InsertDescriptor adds another descriptor to an existing identity.
	InsertDescriptor(ctx context.Context, identityID int64, descriptor NewDescriptor) (*StoredDescriptor, error)
}

// AttendanceReader provides read-only access to the attendance ledger
type AttendanceReader interface {
	// ListAttendance returns ledger rows, newest first
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRow, error)
}

// AttendanceWriter provides write access to the attendance ledger
type AttendanceWriter interface {
	AttendanceReader

	// InsertAttendance performs exactly one insert attempt. A second event for the same
	// identity and local date fails with an error matching ErrUniqueViolation.
	InsertAttendance(ctx context.Context, event NewAttendance) (*AttendanceEvent, error)
}

// RecordStore is the full record store used by the attendance service.
type RecordStore interface {
	IdentityWriter
	AttendanceWriter
}
