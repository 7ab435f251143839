// Package local provides an in-process token encoder that needs no model server.
// Each token maps to a fixed pseudo-random direction derived from its FNV hash,
// so texts sharing vocabulary land close together after mean pooling.
// It is meant for development and tests, not for serving a corpus built with a neural model.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/exsearch/internal/domain"
)

// DefaultMaxTokens matches the sequence limit of the MiniLM family.
const DefaultMaxTokens = 256

// Encoder is a deterministic hashed-feature token encoder.
type Encoder struct {
	dim       int
	maxTokens int
}

// NewEncoder creates an encoder producing dim-dimensional token vectors.
func NewEncoder(dim, maxTokens int) (*Encoder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("local encoder: dimensions must be positive, got %d", dim)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Encoder{dim: dim, maxTokens: maxTokens}, nil
}

// EncodeTokens splits text into lowercase word tokens and returns one vector per token.
func (e *Encoder) EncodeTokens(ctx context.Context, text string) (domain.TokenEncoding, error) {
	if err := ctx.Err(); err != nil {
		return domain.TokenEncoding{}, fmt.Errorf("encode tokens: %w", err)
	}

	words := Tokenize(text)
	if len(words) == 0 {
		return domain.TokenEncoding{}, fmt.Errorf("%w: text has no tokens", domain.ErrInvalidInput)
	}
	if len(words) > e.maxTokens {
		words = words[:e.maxTokens]
	}

	tokens := make([][]float32, len(words))
	for i, w := range words {
		tokens[i] = tokenVector(w, e.dim)
	}
	return domain.TokenEncoding{Tokens: tokens}, nil
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
// Text made only of punctuation yields a single token holding the trimmed text.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
	}
	return words
}

// tokenVector derives a vector in [-1, 1)^dim from the token hash with an LCG.
func tokenVector(token string, dim int) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	seed := h.Sum32()

	v := make([]float32, dim)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%2000)/1000 - 1
	}
	return v
}
