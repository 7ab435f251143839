package health

import "context"

// CorpusState reports whether the example corpus is loaded.
type CorpusState interface {
	Loaded() bool
}

// EmbeddingChecker checks embedding model availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
