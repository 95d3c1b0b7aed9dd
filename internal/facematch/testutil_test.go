package facematch

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// staticSource is an IdentityReader returning a fixed record set or an error.
type staticSource struct {
	mu      sync.Mutex
	records []database.IdentityRecord
	err     error
	calls   int
}

func (s *staticSource) set(records []database.IdentityRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.err = err
}

func (s *staticSource) ListIdentities(_ context.Context) ([]database.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *staticSource) GetIdentity(_ context.Context, id int64) (*database.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Identity.ID == id {
			identity := r.Identity
			return &identity, nil
		}
	}
	return nil, nil
}

func (s *staticSource) CountDescriptors(_ context.Context, identityID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Identity.ID == identityID {
			return len(r.Descriptors), nil
		}
	}
	return 0, nil
}

// descriptor returns a vector of the given dimension with first component x.
// Two such vectors are exactly |x1-x2| apart.
func descriptor(dim int, x float32) []float32 {
	v := make([]float32, dim)
	v[0] = x
	return v
}

var nextDescriptorID int64 = 1000

// record builds an identity with one descriptor per vector.
func record(id int64, name string, vectors ...[]float32) database.IdentityRecord {
	r := database.IdentityRecord{
		Identity: database.Identity{
			ID:        id,
			StudentID: "S-" + name,
			Name:      name,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, v := range vectors {
		nextDescriptorID++
		r.Descriptors = append(r.Descriptors, database.StoredDescriptor{
			ID:         nextDescriptorID,
			IdentityID: id,
			Vector:     v,
		})
	}
	return r
}

// loadedStore returns a store refreshed from the given records.
func loadedStore(records ...database.IdentityRecord) (*Store, *staticSource) {
	src := &staticSource{records: records}
	store := NewStore(src, 0)
	if err := store.Refresh(context.Background()); err != nil {
		panic(err)
	}
	return store, src
}
