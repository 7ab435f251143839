package compat

import (
	"context"
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
)

type mockEmbedder struct {
	byText map[string][]float32
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.byText[text]}, nil
}

func newExample(t *testing.T, id string, vec []float32) example.Example {
	t.Helper()
	ex, err := example.New(id, example.Metadata{
		Repository: "r", Title: "Title " + id, Summary: "s", Complexity: "beginner", Language: "go",
	}, vec)
	if err != nil {
		t.Fatal(err)
	}
	return ex
}

func fixture(t *testing.T, drift bool) ([]example.Example, *mockEmbedder) {
	t.Helper()
	a := newExample(t, "a", []float32{1, 0})
	b := newExample(t, "b", []float32{0, 1})
	emb := &mockEmbedder{byText: map[string][]float32{
		a.EmbeddingText(): {1, 0},
		b.EmbeddingText(): {0, 1},
	}}
	if drift {
		emb.byText[b.EmbeddingText()] = []float32{1, 0}
	}
	return []example.Example{a, b}, emb
}

func TestRun_Compatible(t *testing.T) {
	examples, emb := fixture(t, false)
	c := New(Config{Mode: ModeFail, Sample: 5, MinCosine: 0.95}, emb, zap.NewNop())

	report, err := c.Run(context.Background(), examples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.OK() || report.Checked != 2 {
		t.Errorf("report = %+v, want 2 checked and no mismatches", report)
	}
	if report.MinCosine < 0.999 {
		t.Errorf("MinCosine = %v, want ~1", report.MinCosine)
	}
}

func TestRun_DriftFailMode(t *testing.T) {
	examples, emb := fixture(t, true)
	c := New(Config{Mode: ModeFail, Sample: 5, MinCosine: 0.95}, emb, nil)

	report, err := c.Run(context.Background(), examples)
	if !errors.Is(err, domain.ErrIncompatibleVectors) {
		t.Fatalf("error = %v, want ErrIncompatibleVectors", err)
	}
	if len(report.Mismatches) != 1 || report.Mismatches[0].ID != "b" {
		t.Errorf("mismatches = %+v, want [b]", report.Mismatches)
	}
}

func TestRun_DriftWarnMode(t *testing.T) {
	examples, emb := fixture(t, true)
	c := New(Config{Mode: ModeWarn, Sample: 5, MinCosine: 0.95}, emb, nil)

	report, err := c.Run(context.Background(), examples)
	if err != nil {
		t.Fatalf("warn mode must not fail: %v", err)
	}
	if report.OK() {
		t.Error("expected mismatches in report")
	}
}

func TestRun_Off(t *testing.T) {
	examples, emb := fixture(t, true)
	c := New(Config{Mode: ModeOff}, emb, nil)

	if _, err := c.Run(context.Background(), examples); err != nil {
		t.Fatal(err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times with check off", emb.calls)
	}
}

func TestRun_EmbedError(t *testing.T) {
	examples, _ := fixture(t, false)
	c := New(Config{Mode: ModeWarn, Sample: 1, MinCosine: 0.95}, &mockEmbedder{err: domain.ErrEmbedderNotReady}, nil)

	if _, err := c.Run(context.Background(), examples); !errors.Is(err, domain.ErrEmbedderNotReady) {
		t.Fatalf("error = %v, want ErrEmbedderNotReady", err)
	}
}

func TestRun_DimensionMismatch(t *testing.T) {
	examples, emb := fixture(t, false)
	emb.byText[examples[0].EmbeddingText()] = []float32{1, 0, 0}
	c := New(Config{Mode: ModeWarn, Sample: 1, MinCosine: 0.95}, emb, nil)

	if _, err := c.Run(context.Background(), examples); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{0, 3, nil},
		{5, 0, nil},
		{2, 3, []int{0, 1}},
		{3, 3, []int{0, 1, 2}},
		{10, 3, []int{0, 3, 6}},
		{100, 4, []int{0, 25, 50, 75}},
	}
	for _, tc := range tests {
		if got := SampleIndices(tc.total, tc.n); !slices.Equal(got, tc.want) {
			t.Errorf("SampleIndices(%d, %d) = %v, want %v", tc.total, tc.n, got, tc.want)
		}
	}
}
