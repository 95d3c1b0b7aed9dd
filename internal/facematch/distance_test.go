package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"3-4-5 triangle", []float32{0, 0}, []float32{3, 4}, 5},
		{"identical", []float32{0.25, -0.5, 1}, []float32{0.25, -0.5, 1}, 0},
		{"single axis", []float32{1, 0, 0}, []float32{0, 0, 0}, 1},
		{"empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Distance() error = %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Distance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestDistance_SymmetricAndZeroOnSelf(t *testing.T) {
	a := descriptor(128, 0.37)
	b := descriptor(128, -0.12)
	a[5], b[77] = 0.9, -0.3

	ab, err := Distance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("Distance is not symmetric: %v != %v", ab, ba)
	}

	aa, err := Distance(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if aa != 0 {
		t.Errorf("Distance(a, a) = %v, want 0", aa)
	}
}

func TestDistance_DimensionMismatch(t *testing.T) {
	_, err := Distance([]float32{1, 2, 3}, []float32{1, 2})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestValidateDimension(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name    string
		v       []float32
		dim     int
		wantErr error
	}{
		{"valid", []float32{0.1, 0.2, 0.3}, 3, nil},
		{"too short", []float32{0.1, 0.2}, 3, ErrDimensionMismatch},
		{"too long", []float32{0.1, 0.2, 0.3, 0.4}, 3, ErrDimensionMismatch},
		{"empty", nil, 3, ErrDimensionMismatch},
		{"nan", []float32{0.1, nan, 0.3}, 3, ErrInvalidDescriptor},
		{"inf", []float32{inf, 0.2, 0.3}, 3, ErrInvalidDescriptor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDimension(tt.v, tt.dim)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
