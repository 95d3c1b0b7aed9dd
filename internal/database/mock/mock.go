// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockRecordStore is an in-memory database.RecordStore enforcing the same unique
// constraints as the SQL schemas: student ID, and (identity, local date) for attendance.
type MockRecordStore struct {
	mu          sync.RWMutex
	identities  map[int64]*database.Identity
	descriptors map[int64][]database.StoredDescriptor
	attendance  []database.AttendanceEvent
	nextID      int64
	now         func() time.Time

	// Error injection
	ListError             error
	GetError              error
	InsertIdentityError   error
	InsertDescriptorError error
	InsertAttendanceError error
	ListAttendanceError   error

	// Call counters
	InsertAttendanceCalls int
	ListCalls             int
}

// NewMockRecordStore creates an empty mock record store
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		identities:  make(map[int64]*database.Identity),
		descriptors: make(map[int64][]database.StoredDescriptor),
		now:         time.Now,
	}
}

func (m *MockRecordStore) id() int64 {
	m.nextID++
	return m.nextID
}

// SetError sets every injected error at once (nil clears them).
func (m *MockRecordStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListError = err
	m.GetError = err
	m.InsertIdentityError = err
	m.InsertDescriptorError = err
	m.InsertAttendanceError = err
	m.ListAttendanceError = err
}

// ListIdentities returns identities ordered by ID with descriptors ordered by ID
func (m *MockRecordStore) ListIdentities(ctx context.Context) ([]database.IdentityRecord, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListError != nil {
		return nil, m.ListError
	}

	ids := make([]int64, 0, len(m.identities))
	for id := range m.identities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]database.IdentityRecord, 0, len(ids))
	for _, id := range ids {
		descs := make([]database.StoredDescriptor, len(m.descriptors[id]))
		copy(descs, m.descriptors[id])
		records = append(records, database.IdentityRecord{Identity: *m.identities[id], Descriptors: descs})
	}
	return records, nil
}

// GetIdentity returns nil when the identity does not exist
func (m *MockRecordStore) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	identity, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	result := *identity
	return &result, nil
}

// CountDescriptors returns the number of descriptors for an identity
func (m *MockRecordStore) CountDescriptors(ctx context.Context, identityID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return 0, m.GetError
	}
	return len(m.descriptors[identityID]), nil
}

// InsertIdentity stores an identity with its first descriptor
func (m *MockRecordStore) InsertIdentity(ctx context.Context, in database.NewIdentity) (*database.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertIdentityError != nil {
		return nil, m.InsertIdentityError
	}
	for _, existing := range m.identities {
		if existing.StudentID == in.StudentID {
			return nil, &database.UniqueViolationError{
				Constraint: "identities_student_id_key",
				Err:        fmt.Errorf("student_id %q already exists", in.StudentID),
			}
		}
	}

	identity := &database.Identity{
		ID:        m.id(),
		StudentID: in.StudentID,
		Name:      in.Name,
		Major:     in.Major,
		CreatedAt: m.now().UTC(),
	}
	m.identities[identity.ID] = identity
	m.descriptors[identity.ID] = []database.StoredDescriptor{m.newDescriptor(identity.ID, in.Descriptor)}

	result := *identity
	return &result, nil
}

func (m *MockRecordStore) newDescriptor(identityID int64, in database.NewDescriptor) database.StoredDescriptor {
	return database.StoredDescriptor{
		ID:         m.id(),
		IdentityID: identityID,
		Vector:     append([]float32(nil), in.Vector...),
		CaptureRef: in.CaptureRef,
		CreatedAt:  m.now().UTC(),
	}
}

// InsertDescriptor adds a descriptor to an existing identity
func (m *MockRecordStore) InsertDescriptor(ctx context.Context, identityID int64, in database.NewDescriptor) (*database.StoredDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertDescriptorError != nil {
		return nil, m.InsertDescriptorError
	}
	if _, ok := m.identities[identityID]; !ok {
		return nil, fmt.Errorf("identity %d not found", identityID)
	}
	d := m.newDescriptor(identityID, in)
	m.descriptors[identityID] = append(m.descriptors[identityID], d)
	return &d, nil
}

// InsertAttendance records an event, rejecting a second one for the same identity and day
func (m *MockRecordStore) InsertAttendance(ctx context.Context, in database.NewAttendance) (*database.AttendanceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertAttendanceCalls++
	if m.InsertAttendanceError != nil {
		return nil, m.InsertAttendanceError
	}
	if _, ok := m.identities[in.IdentityID]; !ok {
		return nil, errors.New("insert attendance: foreign key violation on identity_id")
	}
	for _, e := range m.attendance {
		if e.IdentityID == in.IdentityID && e.LocalDate == in.LocalDate {
			return nil, &database.UniqueViolationError{
				Constraint: "attendance_identity_day_key",
				Err:        fmt.Errorf("attendance for identity %d on %s already exists", in.IdentityID, in.LocalDate),
			}
		}
	}

	event := database.AttendanceEvent{
		ID:         m.id(),
		IdentityID: in.IdentityID,
		RecordedAt: in.RecordedAt.UTC(),
		LocalDate:  in.LocalDate,
		Status:     in.Status,
	}
	m.attendance = append(m.attendance, event)
	return &event, nil
}

// ListAttendance returns events newest first, applying the filter
func (m *MockRecordStore) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}

	var rows []database.AttendanceRow
	for _, e := range m.attendance {
		if filter.IdentityID != 0 && e.IdentityID != filter.IdentityID {
			continue
		}
		if filter.FromDate != "" && e.LocalDate < filter.FromDate {
			continue
		}
		if filter.ToDate != "" && e.LocalDate > filter.ToDate {
			continue
		}
		row := database.AttendanceRow{AttendanceEvent: e}
		if identity, ok := m.identities[e.IdentityID]; ok {
			row.StudentID = identity.StudentID
			row.Name = identity.Name
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].RecordedAt.Equal(rows[j].RecordedAt) {
			return rows[i].RecordedAt.After(rows[j].RecordedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

// AttendanceCount returns the number of stored events
func (m *MockRecordStore) AttendanceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attendance)
}

// Close is a no-op so the mock satisfies database.Backend
func (m *MockRecordStore) Close() error {
	return nil
}
