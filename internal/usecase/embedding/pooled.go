package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/vector"
)

// PooledEmbedder turns token-level output into a sentence vector:
// attention-masked mean pooling followed by L2 normalization.
type PooledEmbedder struct {
	encoder domain.TokenEncoder
}

// NewPooledEmbedder creates a mean-pooling embedder over a token encoder.
func NewPooledEmbedder(encoder domain.TokenEncoder) *PooledEmbedder {
	return &PooledEmbedder{encoder: encoder}
}

// Embed encodes text into tokens, mean-pools them and normalizes the result.
func (p *PooledEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	enc, err := p.encoder.EncodeTokens(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("encode tokens: %w", err)
	}

	pooled, err := vector.MeanPool(enc.Tokens, enc.Mask)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: mean pool: %w", domain.ErrEmbeddingProviderError, err)
	}
	normalized, err := vector.Normalize(pooled)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: normalize: %w", domain.ErrEmbeddingProviderError, err)
	}

	tokens := countTokens(enc)
	return domain.EmbeddingResult{
		Embedding:    normalized,
		PromptTokens: tokens,
		TotalTokens:  tokens,
	}, nil
}

func countTokens(enc domain.TokenEncoding) int {
	if enc.Mask == nil {
		return len(enc.Tokens)
	}
	n := 0
	for _, keep := range enc.Mask {
		if keep {
			n++
		}
	}
	return n
}
