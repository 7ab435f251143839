package local

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/vector"
	"github.com/kailas-cloud/exsearch/internal/usecase/embedding"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Vector Search, in Go!", []string{"vector", "search", "in", "go"}},
		{"  multi\tspace\n", []string{"multi", "space"}},
		{"C++ & Rust", []string{"c", "rust"}},
		{"???", []string{"???"}},
		{"   ", nil},
	}

	for _, tc := range tests {
		if got := Tokenize(tc.in); !slices.Equal(got, tc.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewEncoder_RejectsBadDimension(t *testing.T) {
	if _, err := NewEncoder(0, 0); err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestEncoder_Deterministic(t *testing.T) {
	enc, err := NewEncoder(16, 0)
	if err != nil {
		t.Fatal(err)
	}

	a, err := enc.EncodeTokens(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.EncodeTokens(context.Background(), "HELLO, world")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Tokens) != 2 || len(b.Tokens) != 2 {
		t.Fatalf("expected 2 tokens each, got %d and %d", len(a.Tokens), len(b.Tokens))
	}
	for i := range a.Tokens {
		if !slices.Equal(a.Tokens[i], b.Tokens[i]) {
			t.Errorf("token %d differs between case variants", i)
		}
		if len(a.Tokens[i]) != 16 {
			t.Errorf("token %d has %d components, want 16", i, len(a.Tokens[i]))
		}
	}
}

func TestEncoder_Truncates(t *testing.T) {
	enc, err := NewEncoder(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	res, err := enc.EncodeTokens(context.Background(), strings.Repeat("word ", 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tokens) != 3 {
		t.Errorf("got %d tokens, want 3", len(res.Tokens))
	}
}

func TestEncoder_Errors(t *testing.T) {
	enc, err := NewEncoder(4, 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := enc.EncodeTokens(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("blank text error = %v, want ErrInvalidInput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := enc.EncodeTokens(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled ctx error = %v, want context.Canceled", err)
	}
}

func TestEncoder_PooledSimilarity(t *testing.T) {
	enc, err := NewEncoder(384, 0)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewPooledEmbedder(enc)
	ctx := context.Background()

	embed := func(text string) []float32 {
		t.Helper()
		res, err := emb.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed(%q): %v", text, err)
		}
		if len(res.Embedding) != 384 || !vector.IsUnit(res.Embedding, 1e-4) {
			t.Fatalf("Embed(%q) is not a 384-d unit vector", text)
		}
		return res.Embedding
	}

	query := embed("redis vector search")
	near := embed("vector search with redis and go")
	far := embed("image classification pipeline")

	dNear, err := vector.L2Distance(query, near)
	if err != nil {
		t.Fatal(err)
	}
	dFar, err := vector.L2Distance(query, far)
	if err != nil {
		t.Fatal(err)
	}
	if dNear >= dFar {
		t.Errorf("overlapping text distance %v should be below unrelated text distance %v", dNear, dFar)
	}
}
