package domain

import (
	"context"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// TokenEncoder produces token-level representations for a text.
// Pooling into a single sentence vector is the caller's job.
type TokenEncoder interface {
	EncodeTokens(ctx context.Context, text string) (TokenEncoding, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// TokenEncoding is the per-token output of a TokenEncoder.
// Mask marks real tokens (true) versus padding (false); nil means all tokens count.
type TokenEncoding struct {
	Tokens [][]float32
	Mask   []bool
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) (EmbeddingResult, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return f(ctx, text)
}
