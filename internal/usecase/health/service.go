package health

import (
	"context"
	"errors"

	"github.com/kailas-cloud/exsearch/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: searches may fail or run slower.
	Degraded Status = "degraded"
	// Unhealthy indicates the corpus is unavailable and nothing can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckNotReady indicates a component still initializing.
	CheckNotReady CheckResult = "not_ready"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentCorpus    = "corpus"
	ComponentEmbedding = "embedding"
	ComponentCache     = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus    CorpusState
	embedding EmbeddingChecker
	cache     CachePinger
}

// New creates a Service. cache can be nil when no embedding cache is configured.
func New(corpus CorpusState, embedding EmbeddingChecker, cache CachePinger) *Service {
	return &Service{corpus: corpus, embedding: embedding, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	if s.corpus.Loaded() {
		checks[ComponentCorpus] = CheckOK
	} else {
		checks[ComponentCorpus] = CheckNotReady
	}

	switch err := s.embedding.HealthCheck(ctx); {
	case err == nil:
		checks[ComponentEmbedding] = CheckOK
	case errors.Is(err, domain.ErrEmbedderNotReady):
		checks[ComponentEmbedding] = CheckNotReady
	default:
		checks[ComponentEmbedding] = CheckError
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks[ComponentCache] = CheckError
		} else {
			checks[ComponentCache] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	if checks[ComponentCorpus] != CheckOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
