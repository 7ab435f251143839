package search

import (
	"context"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/domain/search/result"
)

// Corpus is the read side of the example store.
type Corpus interface {
	Loaded() bool
	Count(ctx context.Context) (int, error)
	NearestNeighbors(ctx context.Context, query []float32, k int) ([]result.Neighbor, error)
	GetByKey(ctx context.Context, id string) (example.Example, bool, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ReadinessProbe reports whether the embedding model has finished initializing.
type ReadinessProbe interface {
	Ready() bool
}
