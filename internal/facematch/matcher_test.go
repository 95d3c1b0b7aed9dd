package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestMatch(t *testing.T) {
	store, _ := loadedStore(
		record(1, "ayu", descriptor(3, 0)),
		record(2, "budi", descriptor(3, 1)),
	)
	m := NewMatcher(store)

	tests := []struct {
		name       string
		query      []float32
		threshold  float64
		wantMatch  bool
		wantID     int64
		wantDistMx float64
	}{
		{"close to ayu", descriptor(3, 0.2), 0.6, true, 1, 0.2},
		{"close to budi", descriptor(3, 0.9), 0.6, true, 2, 0.1},
		{"between both beyond threshold", descriptor(3, 0.5), 0.4, false, 0, 0.5},
		{"far from everyone", descriptor(3, 5), 0.6, false, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Match(tt.query, tt.threshold)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if result.Matched != tt.wantMatch {
				t.Fatalf("Matched = %v, want %v (distance %v)", result.Matched, tt.wantMatch, result.Distance)
			}
			if tt.wantMatch && result.Identity.ID != tt.wantID {
				t.Errorf("matched identity %d, want %d", result.Identity.ID, tt.wantID)
			}
			if math.Abs(result.Distance-tt.wantDistMx) > 1e-6 {
				t.Errorf("distance = %v, want %v", result.Distance, tt.wantDistMx)
			}
		})
	}
}

func TestMatch_ThresholdIsStrict(t *testing.T) {
	store, _ := loadedStore(record(1, "ayu", []float32{0, 0}))
	m := NewMatcher(store)

	result, err := m.Match([]float32{3, 4}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if result.Matched {
		t.Error("distance equal to threshold must be UNKNOWN")
	}

	result, err = m.Match([]float32{3, 4}, 5.0000001)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Matched {
		t.Error("distance just below threshold must match")
	}
}

func TestMatch_PerIdentityMinimum(t *testing.T) {
	// Budi has one far sample and one very close sample; his minimum must win.
	store, _ := loadedStore(
		record(1, "ayu", descriptor(3, 0.3)),
		record(2, "budi", descriptor(3, 5), descriptor(3, 0.05)),
	)
	m := NewMatcher(store)

	result, err := m.Match(descriptor(3, 0), 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Matched || result.Identity.ID != 2 {
		t.Fatalf("expected budi via closest sample, got %+v", result)
	}
}

func TestMatch_TieGoesToEarliestEnrollment(t *testing.T) {
	// Records are deliberately supplied out of order; the snapshot sorts by identity ID.
	store, _ := loadedStore(
		record(7, "later", descriptor(3, -0.2)),
		record(3, "earlier", descriptor(3, 0.2)),
	)
	m := NewMatcher(store)

	for i := 0; i < 10; i++ {
		result, err := m.Match(descriptor(3, 0), 0.6)
		if err != nil {
			t.Fatal(err)
		}
		if result.Identity.ID != 3 {
			t.Fatalf("run %d: tie must resolve to earliest identity 3, got %d", i, result.Identity.ID)
		}
	}
}

func TestMatch_EmptyStore(t *testing.T) {
	m := NewMatcher(NewStore(&staticSource{}, 0))

	result, err := m.Match(descriptor(128, 0), 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if result.Matched {
		t.Error("empty store must never match")
	}
	if !math.IsInf(result.Distance, 1) {
		t.Errorf("expected +Inf distance, got %v", result.Distance)
	}
}

func TestMatch_IdentityWithoutDescriptors(t *testing.T) {
	store, _ := loadedStore(
		record(1, "empty"),
		record(2, "budi", descriptor(3, 0.1)),
	)

	result, err := NewMatcher(store).Match(descriptor(3, 0), 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if result.Identity.ID != 2 {
		t.Errorf("identity without descriptors must be ignored, got %+v", result)
	}
}

func TestMatch_DimensionMismatch(t *testing.T) {
	store, _ := loadedStore(record(1, "ayu", descriptor(128, 0)))

	_, err := NewMatcher(store).Match(descriptor(64, 0), 0.6)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMatchSnapshot_Exclude(t *testing.T) {
	store, _ := loadedStore(
		record(1, "ayu", descriptor(3, 0)),
		record(2, "budi", descriptor(3, 0.3)),
	)

	result, err := MatchSnapshot(store.All(), descriptor(3, 0), 0.6, map[int64]struct{}{1: {}})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Matched || result.Identity.ID != 2 {
		t.Fatalf("expected budi once ayu is excluded, got %+v", result)
	}

	result, err = MatchSnapshot(nil, descriptor(3, 0), 0.6, nil)
	if err != nil || result.Matched {
		t.Errorf("nil snapshot must be UNKNOWN, got %+v (err %v)", result, err)
	}
}
