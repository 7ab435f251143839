// Package vector holds the float math shared by the corpus and the query path.
package vector

import (
	"fmt"
	"math"
)

// MaxUnitDistance is the largest L2 distance between two unit vectors.
const MaxUnitDistance = 2.0

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// IsUnit reports whether |‖v‖₂ − 1| ≤ tol.
func IsUnit(v []float32, tol float64) bool {
	return math.Abs(Norm(v)-1) <= tol
}

// Finite reports whether every component is a finite number.
func Finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Normalize returns a copy of v scaled to unit length.
func Normalize(v []float32) ([]float32, error) {
	n := Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("vector: cannot normalize vector with norm %v", n)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}

// MeanPool averages the token vectors selected by mask.
// A nil mask selects every token.
func MeanPool(tokens [][]float32, mask []bool) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vector: mean pool over zero tokens")
	}
	if mask != nil && len(mask) != len(tokens) {
		return nil, fmt.Errorf("vector: mask length %d does not match %d tokens", len(mask), len(tokens))
	}

	dim := len(tokens[0])
	sum := make([]float64, dim)
	count := 0
	for i, tok := range tokens {
		if mask != nil && !mask[i] {
			continue
		}
		if len(tok) != dim {
			return nil, fmt.Errorf("vector: token %d has %d components, want %d", i, len(tok), dim)
		}
		for j, x := range tok {
			sum[j] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("vector: mean pool mask selects no tokens")
	}

	out := make([]float32, dim)
	for j := range sum {
		out[j] = float32(sum[j] / float64(count))
	}
	return out, nil
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Cosine returns the cosine similarity between a and b.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("vector: cosine with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
