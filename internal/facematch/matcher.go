package facematch

import (
	"math"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// SnapshotSource provides the snapshot a match runs against.
type SnapshotSource interface {
	All() *Snapshot
}

// Matcher finds the nearest enrolled identity for a descriptor.
type Matcher struct {
	source SnapshotSource
}

// NewMatcher creates a matcher over the given snapshot source (usually a *Store).
func NewMatcher(source SnapshotSource) *Matcher {
	return &Matcher{source: source}
}

// Match searches the current snapshot. A match requires the minimum distance to be
// strictly less than threshold.
func (m *Matcher) Match(query []float32, threshold float64) (MatchResult, error) {
	return MatchSnapshot(m.source.All(), query, threshold, nil)
}

// MatchSnapshot is Match against an explicit snapshot, skipping identities in exclude.
//
// Each identity is scored by its closest descriptor. Identities are visited in
// enrollment order and a later identity replaces the current best only when it is
// strictly closer, so ties go to the earliest enrolled identity.
func MatchSnapshot(snap *Snapshot, query []float32, threshold float64, exclude map[int64]struct{}) (MatchResult, error) {
	result := MatchResult{Distance: math.Inf(1)}
	if snap == nil {
		return result, nil
	}

	var best *database.Identity
	for i := range snap.entries {
		entry := &snap.entries[i]
		if _, skip := exclude[entry.Identity.ID]; skip {
			continue
		}

		d, ok, err := minDistance(entry.Descriptors, query)
		if err != nil {
			return MatchResult{}, err
		}
		if !ok {
			continue
		}
		if best == nil || d < result.Distance {
			best = &entry.Identity
			result.Distance = d
		}
	}

	if best != nil && result.Distance < threshold {
		result.Matched = true
		result.Identity = *best
	}
	return result, nil
}

// minDistance returns the smallest distance from query to any descriptor.
// ok is false when there are no descriptors.
func minDistance(descs []database.StoredDescriptor, query []float32) (float64, bool, error) {
	best := math.Inf(1)
	found := false
	for _, d := range descs {
		dist, err := Distance(query, d.Vector)
		if err != nil {
			return 0, false, err
		}
		if !found || dist < best {
			best = dist
			found = true
		}
	}
	return best, found, nil
}
