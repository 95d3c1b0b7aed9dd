// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// DefaultNeighborLimit is the default number of nearest identities returned by
	// the neighbor diagnostics endpoint
	DefaultNeighborLimit = 5

	// MaxNeighborLimit caps the neighbor diagnostics request size
	MaxNeighborLimit = 50
)

// Ledger constants
const (
	// DefaultAttendancePageSize is the default number of rows returned by the dashboard listing
	DefaultAttendancePageSize = 100

	// MaxAttendancePageSize caps a single dashboard page
	MaxAttendancePageSize = 1000
)

// Import constants
const (
	// MaxImportLineSize is the maximum size of one JSON line in an import file (1MB)
	MaxImportLineSize = 1 << 20
)
