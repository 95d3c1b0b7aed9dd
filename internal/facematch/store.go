package facematch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// ErrSourceUnavailable is returned by Refresh when the record store cannot be read.
// The previous snapshot stays in place.
var ErrSourceUnavailable = errors.New("descriptor source unavailable")

// Snapshot is an immutable view of every enrolled identity and its descriptors.
// Entries are in enrollment order: identity ID ascending, descriptors by ID ascending.
type Snapshot struct {
	entries     []database.IdentityRecord
	byID        map[int64]int
	dim         int
	descriptors int
	skipped     int
	refreshedAt time.Time
	index       *database.DescriptorIndex
}

// newSnapshot copies records into enrollment order. Descriptors whose length differs
// from dim are left out so one bad row cannot break matching for everyone. With
// dim <= 0 the first enrolled descriptor's length is used.
func newSnapshot(records []database.IdentityRecord, dim int, refreshedAt time.Time) *Snapshot {
	s := &Snapshot{
		byID:        make(map[int64]int, len(records)),
		refreshedAt: refreshedAt,
	}
	if dim > 0 {
		s.dim = dim
	}

	entries := make([]database.IdentityRecord, len(records))
	copy(entries, records)
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].Identity.ID < entries[b].Identity.ID })

	for i, r := range entries {
		sorted := append([]database.StoredDescriptor(nil), r.Descriptors...)
		sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].ID < sorted[b].ID })

		descs := make([]database.StoredDescriptor, 0, len(sorted))
		for _, d := range sorted {
			if s.dim == 0 {
				s.dim = len(d.Vector)
			}
			if len(d.Vector) == 0 || len(d.Vector) != s.dim {
				s.skipped++
				continue
			}
			d.Vector = append([]float32(nil), d.Vector...)
			descs = append(descs, d)
		}
		entries[i] = database.IdentityRecord{Identity: r.Identity, Descriptors: descs}
		s.descriptors += len(descs)
	}

	s.entries = entries
	for i, e := range entries {
		s.byID[e.Identity.ID] = i
	}
	s.index = database.BuildDescriptorIndex(entries)
	return s
}

// Entries returns the identities in enrollment order. Callers must not modify them.
func (s *Snapshot) Entries() []database.IdentityRecord {
	return s.entries
}

// Len returns the number of identities.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// DescriptorCount returns the number of descriptors across all identities.
func (s *Snapshot) DescriptorCount() int {
	return s.descriptors
}

// Skipped returns the number of stored descriptors left out for having the wrong dimension.
func (s *Snapshot) Skipped() int {
	return s.skipped
}

// RefreshedAt returns when the snapshot was loaded (zero for the initial empty snapshot).
func (s *Snapshot) RefreshedAt() time.Time {
	return s.refreshedAt
}

// Identity looks up an identity by ID.
func (s *Snapshot) Identity(id int64) (database.Identity, bool) {
	i, ok := s.byID[id]
	if !ok {
		return database.Identity{}, false
	}
	return s.entries[i].Identity, true
}

// Neighbors returns up to k identities nearest to the query, closest first.
// Candidates come from the approximate index; reported distances are exact.
func (s *Snapshot) Neighbors(query []float32, k int) ([]Neighbor, error) {
	if k <= 0 || s.index.IsEmpty() {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(query), s.dim)
	}

	hits, err := s.index.Search(query, k*database.HNSWSearchMultiplier)
	if err != nil {
		return nil, fmt.Errorf("searching descriptor index: %w", err)
	}

	seen := make(map[int64]bool, len(hits))
	var neighbors []Neighbor
	for _, h := range hits {
		if seen[h.IdentityID] {
			continue
		}
		seen[h.IdentityID] = true

		i, ok := s.byID[h.IdentityID]
		if !ok {
			continue
		}
		best, ok, err := minDistance(s.entries[i].Descriptors, query)
		if err != nil {
			return nil, err
		}
		if ok {
			neighbors = append(neighbors, Neighbor{Identity: s.entries[i].Identity, Distance: best})
		}
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		if neighbors[a].Distance != neighbors[b].Distance {
			return neighbors[a].Distance < neighbors[b].Distance
		}
		return neighbors[a].Identity.ID < neighbors[b].Identity.ID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Store caches all descriptors from the record store and serves immutable snapshots.
type Store struct {
	source    database.IdentityReader
	dim       int
	current   *Snapshot
	mu        sync.RWMutex
	refreshMu sync.Mutex // serializes fetch+swap so an older fetch never replaces a newer one
	now       func() time.Time
}

// NewStore creates a store with an empty snapshot. Call Refresh to load data.
// dim is the expected descriptor length; stored vectors of any other length are skipped.
func NewStore(source database.IdentityReader, dim int) *Store {
	return &Store{
		source:  source,
		dim:     dim,
		current: newSnapshot(nil, dim, time.Time{}),
		now:     time.Now,
	}
}

// All returns the current snapshot. It never blocks on I/O.
func (s *Store) All() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh reloads every identity from the record store and atomically replaces the snapshot.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	records, err := s.source.ListIdentities(ctx)
	if err != nil {
		log.Printf("descriptor refresh failed, keeping snapshot from %s: %v",
			s.All().RefreshedAt().Format(time.RFC3339), err)
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	snap := newSnapshot(records, s.dim, s.now())
	if snap.Skipped() > 0 {
		log.Printf("descriptor refresh skipped %d stored descriptors with a dimension other than %d",
			snap.Skipped(), snap.dim)
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return nil
}
