package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/metrics"
)

// DefaultInitTimeout bounds a single model initialization attempt.
const DefaultInitTimeout = 2 * time.Minute

// Loader constructs the underlying model. It may be slow (weights download, warm-up).
type Loader func(ctx context.Context) (domain.Embedder, error)

type loaded struct {
	embedder domain.Embedder
}

// LazyEmbedder initializes the model once, on first use or on an explicit Init.
// Concurrent callers during initialization share the same attempt.
// A failed attempt is not cached: the next caller retries.
type LazyEmbedder struct {
	load     Loader
	provider string
	timeout  time.Duration
	logger   *zap.Logger

	group   singleflight.Group
	current atomic.Pointer[loaded]
}

// NewLazyEmbedder creates an uninitialized embedder gate.
func NewLazyEmbedder(load Loader, provider string, timeout time.Duration, logger *zap.Logger) *LazyEmbedder {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LazyEmbedder{
		load:     load,
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Ready reports whether the model has been initialized.
func (l *LazyEmbedder) Ready() bool { return l.current.Load() != nil }

// Init initializes the model if needed and waits for it.
// Cancelling ctx abandons the wait, not the shared initialization.
func (l *LazyEmbedder) Init(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

// Embed waits for initialization and delegates to the model.
func (l *LazyEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	e, err := l.get(ctx)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return e.Embed(ctx, text)
}

// HealthCheck reports ErrEmbedderNotReady until initialized and then defers to the model if it can check itself.
func (l *LazyEmbedder) HealthCheck(ctx context.Context) error {
	cur := l.current.Load()
	if cur == nil {
		return domain.ErrEmbedderNotReady
	}
	if hc, ok := cur.embedder.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (l *LazyEmbedder) get(ctx context.Context) (domain.Embedder, error) {
	if cur := l.current.Load(); cur != nil {
		return cur.embedder, nil
	}

	ch := l.group.DoChan("init", func() (any, error) {
		// другой flight мог успеть завершиться между Load и DoChan
		if cur := l.current.Load(); cur != nil {
			return cur.embedder, nil
		}
		return l.initialize(ctx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for initialization: %w", domain.ErrEmbedderNotReady, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedderNotReady, res.Err)
		}
		e, ok := res.Val.(domain.Embedder)
		if !ok {
			return nil, fmt.Errorf("%w: loader returned no embedder", domain.ErrEmbedderNotReady)
		}
		return e, nil
	}
}

func (l *LazyEmbedder) initialize(ctx context.Context) (domain.Embedder, error) {
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	start := time.Now()
	l.logger.Info("Initializing embedding model", zap.String("provider", l.provider))

	e, err := l.load(loadCtx)
	if err == nil && e == nil {
		err = errors.New("loader returned nil embedder")
	}
	duration := time.Since(start)

	if err != nil {
		metrics.EmbedderInitDuration.WithLabelValues(l.provider, "error").Observe(duration.Seconds())
		l.logger.Error("Embedding model initialization failed",
			zap.String("provider", l.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("initialize %s embedder: %w", l.provider, err)
	}

	l.current.Store(&loaded{embedder: e})
	metrics.EmbedderInitDuration.WithLabelValues(l.provider, "ok").Observe(duration.Seconds())
	metrics.EmbedderReady.WithLabelValues(l.provider).Set(1)
	l.logger.Info("Embedding model ready",
		zap.String("provider", l.provider),
		zap.Duration("duration", duration),
	)
	return e, nil
}
