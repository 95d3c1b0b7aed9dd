package facematch

import (
	"testing"
)

func TestCheckDuplicate(t *testing.T) {
	store, _ := loadedStore(record(1, "ayu", descriptor(3, 0)))
	guard := NewGuard(store)

	tests := []struct {
		name      string
		candidate []float32
		threshold float64
		want      bool
	}{
		{"same face", descriptor(3, 0.1), 0.35, true},
		{"just inside", descriptor(3, 0.34), 0.35, true},
		{"on threshold", descriptor(3, 0.5), 0.5, false},
		{"different person", descriptor(3, 0.8), 0.35, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, result, err := guard.CheckDuplicate(tt.candidate, tt.threshold)
			if err != nil {
				t.Fatalf("CheckDuplicate() error = %v", err)
			}
			if dup != tt.want {
				t.Errorf("CheckDuplicate() = %v, want %v (distance %v)", dup, tt.want, result.Distance)
			}
			if dup && result.Identity.ID != 1 {
				t.Errorf("expected conflicting identity 1, got %d", result.Identity.ID)
			}
		})
	}
}

func TestCheckDuplicate_EmptyStore(t *testing.T) {
	guard := NewGuard(NewStore(&staticSource{}, 0))

	dup, _, err := guard.CheckDuplicate(descriptor(128, 0), 0.35)
	if err != nil {
		t.Fatal(err)
	}
	if dup {
		t.Error("nothing enrolled, nothing can be a duplicate")
	}
}

func TestCheckDuplicate_AddFaceExemptsTarget(t *testing.T) {
	store, _ := loadedStore(
		record(1, "ayu", descriptor(3, 0)),
		record(2, "budi", descriptor(3, 2)),
	)
	guard := NewGuard(store)

	// A new sample of Ayu is allowed when extending Ayu.
	dup, _, err := guard.CheckDuplicate(descriptor(3, 0.05), 0.35, 1)
	if err != nil {
		t.Fatal(err)
	}
	if dup {
		t.Error("sample of the target identity must not count as a duplicate")
	}

	// The same sample is rejected when extending Budi, because it belongs to Ayu.
	dup, result, err := guard.CheckDuplicate(descriptor(3, 0.05), 0.35, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !dup || result.Identity.ID != 1 {
		t.Errorf("sample matching a different identity must be rejected, got dup=%v %+v", dup, result)
	}
}
