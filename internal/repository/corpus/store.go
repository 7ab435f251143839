package corpus

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/domain/search/result"
	"github.com/kailas-cloud/exsearch/internal/domain/vector"
)

const memorySource = "<memory>"

// snapshot is an immutable, fully validated corpus.
type snapshot struct {
	examples []example.Example
	byID     map[string]int
}

// Store holds the static example corpus in memory.
// Readers see either no corpus or a complete one: Load publishes a new snapshot with a single atomic swap.
type Store struct {
	dim    int
	tol    float64
	snap   atomic.Pointer[snapshot]
	logger *zap.Logger
}

// New creates an empty store for vectors of the given dimension.
func New(dim int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dim:    dim,
		tol:    domain.DefaultVectorConfig().NormTolerance,
		logger: logger,
	}
}

// WithNormTolerance overrides the allowed deviation of stored vector norms from 1.
func (s *Store) WithNormTolerance(tol float64) *Store {
	if tol > 0 {
		s.tol = tol
	}
	return s
}

// Dimensions returns the configured vector dimension.
func (s *Store) Dimensions() int { return s.dim }

// LoadFile reads and loads a corpus file.
func (s *Store) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return domain.NewCorpusError(path, -1, fmt.Errorf("read file: %w", err))
	}
	return s.load(ctx, path, data)
}

// Load parses and loads a corpus from raw JSON.
func (s *Store) Load(ctx context.Context, data []byte) error {
	return s.load(ctx, memorySource, data)
}

func (s *Store) load(ctx context.Context, source string, data []byte) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return domain.NewCorpusError(source, -1, err)
	}

	var records []recordDTO
	if err := json.Unmarshal(data, &records); err != nil {
		return domain.NewCorpusError(source, -1, fmt.Errorf("malformed JSON: %w", err))
	}
	if len(records) == 0 {
		return domain.NewCorpusError(source, -1, errors.New("empty collection"))
	}

	next := &snapshot{
		examples: make([]example.Example, 0, len(records)),
		byID:     make(map[string]int, len(records)),
	}
	for i := range records {
		ex, err := s.validate(&records[i])
		if err != nil {
			return domain.NewCorpusError(source, i, err)
		}
		if _, dup := next.byID[ex.ID()]; dup {
			return domain.NewCorpusError(source, i, fmt.Errorf("duplicate id %q", ex.ID()))
		}
		next.byID[ex.ID()] = len(next.examples)
		next.examples = append(next.examples, ex)
	}

	s.snap.Store(next)

	s.logger.Info("Corpus loaded",
		zap.String("source", source),
		zap.Int("records", len(next.examples)),
		zap.Int("dimensions", s.dim),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Store) validate(rec *recordDTO) (example.Example, error) {
	if len(rec.Vector) != s.dim {
		return example.Example{}, fmt.Errorf("%w: id %q has %d components, want %d",
			domain.ErrDimensionMismatch, rec.key(), len(rec.Vector), s.dim)
	}
	if !vector.Finite(rec.Vector) {
		return example.Example{}, fmt.Errorf("id %q: vector has non-finite components", rec.key())
	}
	if !vector.IsUnit(rec.Vector, s.tol) {
		return example.Example{}, fmt.Errorf("id %q: vector norm %.6f is not within %g of 1",
			rec.key(), vector.Norm(rec.Vector), s.tol)
	}
	ex, err := rec.toDomain()
	if err != nil {
		return example.Example{}, fmt.Errorf("invalid record: %w", err)
	}
	return ex, nil
}

// Loaded reports whether a corpus has been loaded.
func (s *Store) Loaded() bool { return s.snap.Load() != nil }

func (s *Store) current() (*snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, domain.ErrNotInitialized
	}
	return snap, nil
}

// Count returns the number of loaded examples.
func (s *Store) Count(_ context.Context) (int, error) {
	snap, err := s.current()
	if err != nil {
		return 0, err
	}
	return len(snap.examples), nil
}

// All returns the loaded examples in corpus order.
func (s *Store) All(_ context.Context) ([]example.Example, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.examples), nil
}

// NearestNeighbors returns up to k examples ordered by ascending L2 distance to query.
// Ties keep corpus order. The scan is exact.
func (s *Store) NearestNeighbors(ctx context.Context, query []float32, k int) ([]result.Neighbor, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d components, want %d", domain.ErrDimensionMismatch, len(query), s.dim)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}

	candidates := make([]result.Neighbor, len(snap.examples))
	for i := range snap.examples {
		d, err := vector.L2Distance(query, snap.examples[i].Vector())
		if err != nil {
			return nil, fmt.Errorf("distance to %q: %w", snap.examples[i].ID(), err)
		}
		candidates[i] = result.Neighbor{
			Example:  snap.examples[i],
			Distance: math.Min(d, vector.MaxUnitDistance),
		}
	}

	slices.SortStableFunc(candidates, func(a, b result.Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// GetByKey looks up an example by exact id. A missing id is reported via found=false, not an error.
func (s *Store) GetByKey(_ context.Context, id string) (example.Example, bool, error) {
	if strings.TrimSpace(id) == "" {
		return example.Example{}, false, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	snap, err := s.current()
	if err != nil {
		return example.Example{}, false, err
	}
	i, ok := snap.byID[id]
	if !ok {
		return example.Example{}, false, nil
	}
	return snap.examples[i], true, nil
}
