package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/vector"
)

// ContractEmbedder enforces the query vector contract on any Embedder:
// non-blank input, exactly dim finite components, unit L2 norm.
// It re-normalizes provider output so upstream rounding never leaks into distances.
type ContractEmbedder struct {
	inner domain.Embedder
	dim   int
}

// NewContractEmbedder wraps inner with input validation and output normalization.
func NewContractEmbedder(inner domain.Embedder, dim int) *ContractEmbedder {
	return &ContractEmbedder{inner: inner, dim: dim}
}

// Dimensions returns the enforced output dimension.
func (c *ContractEmbedder) Dimensions() int { return c.dim }

// Embed validates text, delegates and checks the produced vector.
func (c *ContractEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if len(res.Embedding) != c.dim {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: embedder produced %d components, want %d",
			domain.ErrDimensionMismatch, len(res.Embedding), c.dim)
	}
	if !vector.Finite(res.Embedding) {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: embedding has non-finite components",
			domain.ErrEmbeddingProviderError)
	}
	normalized, err := vector.Normalize(res.Embedding)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	res.Embedding = normalized
	return res, nil
}

// HealthCheck forwards to the wrapped embedder when it supports health checks.
func (c *ContractEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
