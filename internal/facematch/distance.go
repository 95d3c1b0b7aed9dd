package facematch

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two descriptors have different lengths.
	ErrDimensionMismatch = errors.New("descriptor dimension mismatch")
	// ErrInvalidDescriptor is returned for descriptors holding NaN or infinite components.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// Distance returns the Euclidean distance between two descriptors.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// ValidateDimension checks a descriptor received at a system boundary.
func ValidateDimension(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidDescriptor, i, x)
		}
	}
	return nil
}
