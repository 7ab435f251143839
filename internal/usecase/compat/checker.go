// Package compat verifies that the query embedder reproduces the corpus vectors.
// A model, pooling or normalization mismatch does not raise errors at query time;
// it only degrades rankings. Re-embedding a few records at startup makes it visible.
package compat

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/domain/vector"
)

// Mode controls what a failed check does.
type Mode string

// Check modes.
const (
	ModeOff  Mode = "off"
	ModeWarn Mode = "warn"
	ModeFail Mode = "fail"
)

// Config holds check settings.
type Config struct {
	Mode      Mode
	Sample    int
	MinCosine float64
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Mismatch is a sampled record whose re-embedding drifted below the threshold.
type Mismatch struct {
	ID     string
	Cosine float64
}

// Report is the outcome of a check.
type Report struct {
	Checked    int
	MinCosine  float64
	Mismatches []Mismatch
}

// OK reports whether every sampled record passed.
func (r Report) OK() bool { return len(r.Mismatches) == 0 }

// Checker runs the compatibility check.
type Checker struct {
	cfg    Config
	embed  Embedder
	logger *zap.Logger
}

// New creates a Checker.
func New(cfg Config, embed Embedder, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{cfg: cfg, embed: embed, logger: logger}
}

// Run checks a sample of examples. In ModeFail a drifted sample returns ErrIncompatibleVectors;
// in ModeWarn it is only logged. Embedding failures are returned in both modes.
func (c *Checker) Run(ctx context.Context, examples []example.Example) (Report, error) {
	if c.cfg.Mode == ModeOff || c.cfg.Mode == "" {
		return Report{}, nil
	}

	report := Report{MinCosine: 1}
	for _, i := range SampleIndices(len(examples), c.cfg.Sample) {
		ex := examples[i]
		res, err := c.embed.Embed(ctx, ex.EmbeddingText())
		if err != nil {
			return report, fmt.Errorf("re-embed %q: %w", ex.ID(), err)
		}
		cos, err := vector.Cosine(res.Embedding, ex.Vector())
		if err != nil {
			return report, fmt.Errorf("compare %q: %w", ex.ID(), err)
		}

		report.Checked++
		report.MinCosine = math.Min(report.MinCosine, cos)
		if cos < c.cfg.MinCosine {
			report.Mismatches = append(report.Mismatches, Mismatch{ID: ex.ID(), Cosine: cos})
		}
	}

	if report.OK() {
		c.logger.Info("Vector compatibility check passed",
			zap.Int("checked", report.Checked),
			zap.Float64("min_cosine", report.MinCosine),
		)
		return report, nil
	}

	ids := make([]string, len(report.Mismatches))
	for i, m := range report.Mismatches {
		ids[i] = m.ID
	}
	fields := []zap.Field{
		zap.Int("checked", report.Checked),
		zap.Int("mismatches", len(report.Mismatches)),
		zap.Float64("min_cosine", report.MinCosine),
		zap.Float64("threshold", c.cfg.MinCosine),
		zap.Strings("ids", ids),
	}

	if c.cfg.Mode == ModeFail {
		c.logger.Error("Vector compatibility check failed", fields...)
		return report, fmt.Errorf("%w: %d of %d sampled records below cosine %.3f",
			domain.ErrIncompatibleVectors, len(report.Mismatches), report.Checked, c.cfg.MinCosine)
	}
	c.logger.Warn("Vector compatibility check failed: rankings may be degraded", fields...)
	return report, nil
}

// SampleIndices picks up to n indices spread evenly over [0, total), always including the first.
func SampleIndices(total, n int) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	if n >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i * total / n
	}
	return out
}
