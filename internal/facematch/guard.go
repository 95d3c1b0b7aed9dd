package facematch

// Guard rejects enrollment of a face that already belongs to someone.
type Guard struct {
	source SnapshotSource
}

// NewGuard creates an enrollment guard over the given snapshot source.
func NewGuard(source SnapshotSource) *Guard {
	return &Guard{source: source}
}

// CheckDuplicate reports whether candidate is within threshold of any identity not
// listed in exempt. Adding another sample to an existing identity passes that
// identity's ID so the sample is not rejected as a duplicate of itself.
func (g *Guard) CheckDuplicate(candidate []float32, threshold float64, exempt ...int64) (bool, MatchResult, error) {
	var exclude map[int64]struct{}
	if len(exempt) > 0 {
		exclude = make(map[int64]struct{}, len(exempt))
		for _, id := range exempt {
			exclude[id] = struct{}{}
		}
	}

	result, err := MatchSnapshot(g.source.All(), candidate, threshold, exclude)
	if err != nil {
		return false, MatchResult{}, err
	}
	return result.Matched, result, nil
}
