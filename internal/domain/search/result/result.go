package result

import (
	"math"

	"github.com/kailas-cloud/exsearch/internal/domain/example"
)

// Result is a single ranked search hit.
type Result struct {
	example    example.Example
	distance   float64
	similarity float64
}

// New creates a result, deriving the similarity score from distance.
func New(ex example.Example, distance float64) Result {
	return Result{example: ex, distance: distance, similarity: Similarity(distance)}
}

// Example returns the matched example.
func (r *Result) Example() example.Example { return r.example }

// Distance returns the raw L2 distance to the query vector.
func (r *Result) Distance() float64 { return r.distance }

// Similarity returns the 0–100 score.
func (r *Result) Similarity() float64 { return r.similarity }

// Similarity maps an L2 distance between unit vectors (range [0, 2]) onto a percentage:
//
//	similarity = max(0, min(100, 100 − 50·distance)), rounded to one decimal place.
func Similarity(distance float64) float64 {
	s := 100 - 50*distance
	s = math.Max(0, math.Min(100, s))
	return math.Round(s*10) / 10
}

// Neighbor is a raw nearest-neighbor candidate before scoring.
type Neighbor struct {
	Example  example.Example
	Distance float64
}
