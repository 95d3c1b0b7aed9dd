package mariadb

import (
	"math"
	"testing"
)

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0.1, -0.25, 3.5e-7, 1}
	data, err := encodeVector(in)
	if err != nil {
		t.Fatalf("encodeVector() error = %v", err)
	}
	if data[0] != '[' {
		t.Errorf("expected a JSON array, got %s", data)
	}

	out, err := decodeVector(data)
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("component %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestEncodeVector_Rejects(t *testing.T) {
	if _, err := encodeVector(nil); err == nil {
		t.Error("expected error for empty descriptor")
	}
	if _, err := encodeVector([]float32{float32(math.NaN())}); err == nil {
		t.Error("expected error for NaN component")
	}
}

func TestDecodeVector_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty array", "[]"},
		{"null", "null"},
		{"object", `{"x":1}`},
		{"strings", `["a","b"]`},
		{"truncated", "[0.1, 0.2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if v, err := decodeVector([]byte(tc.raw)); err == nil {
				t.Errorf("expected error, got %v", v)
			}
		})
	}
}
