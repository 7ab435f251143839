package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/vector"
)

type mockEncoder struct {
	enc domain.TokenEncoding
	err error
}

func (m *mockEncoder) EncodeTokens(_ context.Context, _ string) (domain.TokenEncoding, error) {
	return m.enc, m.err
}

func TestPooledEmbedder_MeanThenNormalize(t *testing.T) {
	enc := &mockEncoder{enc: domain.TokenEncoding{
		Tokens: [][]float32{{2, 0}, {0, 2}, {100, 100}},
		Mask:   []bool{true, true, false},
	}}
	p := NewPooledEmbedder(enc)

	res, err := p.Embed(context.Background(), "two tokens")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// mean of {2,0},{0,2} = {1,1}; normalized = {1/√2, 1/√2}
	want := float32(1 / math.Sqrt2)
	for i, x := range res.Embedding {
		if math.Abs(float64(x-want)) > 1e-6 {
			t.Errorf("component %d = %v, want %v", i, x, want)
		}
	}
	if !vector.IsUnit(res.Embedding, 1e-6) {
		t.Errorf("norm = %v, want 1", vector.Norm(res.Embedding))
	}
	if res.TotalTokens != 2 {
		t.Errorf("TotalTokens = %d, want 2 (padding excluded)", res.TotalTokens)
	}
}

func TestPooledEmbedder_NilMaskCountsAll(t *testing.T) {
	enc := &mockEncoder{enc: domain.TokenEncoding{Tokens: [][]float32{{3, 4}, {3, 4}}}}
	res, err := NewPooledEmbedder(enc).Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PromptTokens != 2 {
		t.Errorf("PromptTokens = %d, want 2", res.PromptTokens)
	}
	if math.Abs(float64(res.Embedding[0])-0.6) > 1e-6 || math.Abs(float64(res.Embedding[1])-0.8) > 1e-6 {
		t.Errorf("embedding = %v, want [0.6 0.8]", res.Embedding)
	}
}

func TestPooledEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		enc     *mockEncoder
		wantErr error
	}{
		{"encoder error", &mockEncoder{err: errors.New("boom")}, nil},
		{"no tokens", &mockEncoder{}, domain.ErrEmbeddingProviderError},
		{"all padding", &mockEncoder{enc: domain.TokenEncoding{
			Tokens: [][]float32{{1, 0}},
			Mask:   []bool{false},
		}}, domain.ErrEmbeddingProviderError},
		{"zero vector", &mockEncoder{enc: domain.TokenEncoding{
			Tokens: [][]float32{{0, 0}},
		}}, domain.ErrEmbeddingProviderError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPooledEmbedder(tc.enc).Embed(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
