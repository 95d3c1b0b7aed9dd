package database

import (
	"time"
)

// AttendanceStatus is the punctuality classification persisted with an attendance event.
type AttendanceStatus string

const (
	StatusOnTime AttendanceStatus = "ON_TIME"
	StatusLate   AttendanceStatus = "LATE"
)

// Valid reports whether s is a known status value.
func (s AttendanceStatus) Valid() bool {
	return s == StatusOnTime || s == StatusLate
}

// Identity represents one enrolled person
type Identity struct {
	ID        int64     `json:"id"`
	StudentID string    `json:"student_id"` // external reference code, unique
	Name      string    `json:"name"`
	Major     string    `json:"major"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredDescriptor represents a face descriptor stored in the database
type StoredDescriptor struct {
	ID         int64
	IdentityID int64
	Vector     []float32
	CaptureRef string // reference to the captured image (perceptual hash), empty if unknown
	CreatedAt  time.Time
}

// IdentityRecord is an identity together with all of its enrolled descriptors.
type IdentityRecord struct {
	Identity    Identity
	Descriptors []StoredDescriptor
}

// NewDescriptor is the input for storing a descriptor.
type NewDescriptor struct {
	Vector     []float32
	CaptureRef string
}

// NewIdentity is the input for enrolling an identity with its first descriptor.
type NewIdentity struct {
	StudentID  string
	Name       string
	Major      string
	Descriptor NewDescriptor
}

// AttendanceEvent represents one recorded presence
type AttendanceEvent struct {
	ID         int64            `json:"id"`
	IdentityID int64            `json:"identity_id"`
	RecordedAt time.Time        `json:"recorded_at"` // UTC instant, authoritative
	LocalDate  string           `json:"local_date"`  // YYYY-MM-DD in the display timezone
	Status     AttendanceStatus `json:"status"`
}

// NewAttendance is the input for a ledger insert.
type NewAttendance struct {
	IdentityID int64
	RecordedAt time.Time
	LocalDate  string
	Status     AttendanceStatus
}

// AttendanceRow is an attendance event joined with identity display fields.
type AttendanceRow struct {
	AttendanceEvent
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// AttendanceFilter narrows a ledger listing. Zero values mean "no filter".
type AttendanceFilter struct {
	FromDate   string // inclusive, YYYY-MM-DD local date
	ToDate     string // inclusive, YYYY-MM-DD local date
	IdentityID int64
	Limit      int
}

// LocalDateLayout is the layout of AttendanceEvent.LocalDate.
const LocalDateLayout = "2006-01-02"
