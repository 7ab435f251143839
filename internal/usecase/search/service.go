package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/domain/search/request"
	"github.com/kailas-cloud/exsearch/internal/domain/search/result"
	"github.com/kailas-cloud/exsearch/internal/logger"
	"github.com/kailas-cloud/exsearch/internal/metrics"
)

// Response is the outcome of a search.
type Response struct {
	Results        []result.Result
	Query          string
	Count          int
	ProcessingTime time.Duration
}

// ProcessingTimeMs returns the processing time in fractional milliseconds.
func (r Response) ProcessingTimeMs() float64 {
	return float64(r.ProcessingTime) / float64(time.Millisecond)
}

// Stats is the corpus diagnostic summary.
type Stats struct {
	Count int
}

// Readiness reports which dependencies are initialized.
type Readiness struct {
	CorpusLoaded   bool
	EmbedderLoaded bool
}

// Ready reports whether the service can answer searches.
func (r Readiness) Ready() bool { return r.CorpusLoaded && r.EmbedderLoaded }

// Service runs the query → embedding → nearest neighbors → scoring pipeline.
type Service struct {
	corpus Corpus
	embed  Embedder
	probe  ReadinessProbe
	policy request.Policy
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy overrides the query validation bounds.
func WithPolicy(p request.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// New creates a search service. probe may be nil when the embedder has no lazy phase.
func New(corpus Corpus, embed Embedder, probe ReadinessProbe, opts ...Option) *Service {
	s := &Service{
		corpus: corpus,
		embed:  embed,
		probe:  probe,
		policy: request.DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates the query, embeds it and ranks the corpus by distance.
// Validation errors (ErrInvalidQuery) are returned before any embedding or scan.
// Every later failure is wrapped in ErrSearchFailed while keeping its cause for errors.Is.
func (s *Service) Search(ctx context.Context, query string, limit *int) (Response, error) {
	start := s.now()

	req, err := s.policy.New(query, limit)
	if err != nil {
		observe("invalid", 0, 0)
		return Response{}, err
	}

	if !s.corpus.Loaded() {
		return Response{}, s.fail(ctx, "corpus", domain.ErrNotInitialized, start)
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return Response{}, s.fail(ctx, "vectorize query", err, start)
	}

	neighbors, err := s.corpus.NearestNeighbors(ctx, emb.Embedding, req.Limit())
	if err != nil {
		return Response{}, s.fail(ctx, "nearest neighbors", err, start)
	}

	results := make([]result.Result, len(neighbors))
	for i, n := range neighbors {
		results[i] = result.New(n.Example, n.Distance)
	}

	elapsed := s.now().Sub(start)
	observe("ok", elapsed, len(results))

	logger.FromContext(ctx).Debug("Search completed",
		zap.Int("query_len", len(req.Query())),
		zap.Int("limit", req.Limit()),
		zap.Int("results", len(results)),
		zap.Int("prompt_tokens", emb.PromptTokens),
		zap.Duration("duration", elapsed),
	)

	return Response{
		Results:        results,
		Query:          req.Query(),
		Count:          len(results),
		ProcessingTime: elapsed,
	}, nil
}

// GetByID looks up an example by exact id. found=false means no such example.
func (s *Service) GetByID(ctx context.Context, id string) (example.Example, bool, error) {
	if strings.TrimSpace(id) == "" {
		return example.Example{}, false, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	ex, found, err := s.corpus.GetByKey(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return example.Example{}, false, err
		}
		return example.Example{}, false, fmt.Errorf("%w: get example: %w", domain.ErrSearchFailed, err)
	}
	return ex, found, nil
}

// Stats returns the corpus size.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.corpus.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: count: %w", domain.ErrSearchFailed, err)
	}
	return Stats{Count: n}, nil
}

// Ready reports corpus and embedder initialization state.
func (s *Service) Ready(_ context.Context) Readiness {
	r := Readiness{CorpusLoaded: s.corpus.Loaded(), EmbedderLoaded: true}
	if s.probe != nil {
		r.EmbedderLoaded = s.probe.Ready()
	}
	return r
}

func (s *Service) fail(ctx context.Context, stage string, err error, start time.Time) error {
	status := "failed"
	if errors.Is(err, domain.ErrNotInitialized) || errors.Is(err, domain.ErrEmbedderNotReady) {
		status = "not_ready"
	}
	elapsed := s.now().Sub(start)
	observe(status, elapsed, 0)

	log := logger.FromContext(ctx)
	if status == "not_ready" {
		log.Warn("Search rejected: service not ready", zap.String("stage", stage), zap.Error(err))
	} else {
		log.Error("Search failed", zap.String("stage", stage), zap.Duration("duration", elapsed), zap.Error(err))
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrSearchFailed, stage, err)
}

func observe(status string, elapsed time.Duration, results int) {
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		metrics.SearchDuration.Observe(elapsed.Seconds())
		metrics.SearchResults.Observe(float64(results))
	}
}
