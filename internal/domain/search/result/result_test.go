package result

import (
	"math"
	"testing"

	"github.com/kailas-cloud/exsearch/internal/domain/example"
)

func TestSimilarity_KnownPoints(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 100},
		{1, 50},
		{2, 0},
		{3, 0},
		{math.Sqrt2, 29.3},
		{0.12, 94},
		{-0.5, 100},
	}
	for _, tc := range tests {
		if got := Similarity(tc.distance); got != tc.want {
			t.Errorf("Similarity(%v) = %v, want %v", tc.distance, got, tc.want)
		}
	}
}

func TestSimilarity_BoundedAndMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for d := 0.0; d <= 3.0; d += 0.001 {
		s := Similarity(d)
		if s < 0 || s > 100 {
			t.Fatalf("Similarity(%v) = %v out of [0, 100]", d, s)
		}
		if s > prev {
			t.Fatalf("Similarity not monotonic at %v: %v > %v", d, s, prev)
		}
		prev = s
	}
}

func TestNew(t *testing.T) {
	ex, err := example.New("ex-1", example.Metadata{
		Repository: "r", Title: "t", Summary: "s", Complexity: "c", Language: "go",
	}, []float32{1, 0})
	if err != nil {
		t.Fatalf("example.New: %v", err)
	}

	r := New(ex, 1.0)
	if got := r.Example(); got.ID() != "ex-1" {
		t.Errorf("Example().ID() = %q", got.ID())
	}
	if r.Distance() != 1.0 {
		t.Errorf("Distance() = %v", r.Distance())
	}
	if r.Similarity() != 50 {
		t.Errorf("Similarity() = %v, want 50", r.Similarity())
	}
}
