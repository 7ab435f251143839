package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/exsearch/internal/domain"
)

func unitEmbedder() *mockEmbedder {
	return &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}}}
}

func TestLazyEmbedder_ConcurrentCallersShareOneInit(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	inner := unitEmbedder()

	l := NewLazyEmbedder(func(ctx context.Context) (domain.Embedder, error) {
		loads.Add(1)
		<-release
		return inner, nil
	}, "test-concurrent", time.Second, zap.NewNop())

	if l.Ready() {
		t.Fatal("Ready() = true before init")
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			_, err := l.Embed(ctx, "hello")
			return err
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
	if !l.Ready() {
		t.Error("Ready() = false after init")
	}
	if inner.calls.Load() != 32 {
		t.Errorf("inner embed calls = %d, want 32", inner.calls.Load())
	}
}

func TestLazyEmbedder_FailureIsRetried(t *testing.T) {
	var loads atomic.Int32
	l := NewLazyEmbedder(func(ctx context.Context) (domain.Embedder, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("weights unavailable")
		}
		return unitEmbedder(), nil
	}, "test-retry", time.Second, nil)

	err := l.Init(context.Background())
	if !errors.Is(err, domain.ErrEmbedderNotReady) {
		t.Fatalf("first Init error = %v, want ErrEmbedderNotReady", err)
	}
	if l.Ready() {
		t.Fatal("Ready() = true after failed init")
	}

	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if !l.Ready() {
		t.Fatal("Ready() = false after successful retry")
	}
	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("third Init: %v", err)
	}
	if n := loads.Load(); n != 2 {
		t.Errorf("loader ran %d times, want 2", n)
	}
}

func TestLazyEmbedder_CallerCancelDoesNotAbortInit(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	loaderDone := make(chan struct{})

	l := NewLazyEmbedder(func(ctx context.Context) (domain.Embedder, error) {
		defer close(loaderDone)
		loads.Add(1)
		select {
		case <-release:
			return unitEmbedder(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, "test-cancel", time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Init(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	if !errors.Is(err, domain.ErrEmbedderNotReady) || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Init error = %v, want ErrEmbedderNotReady wrapping context.Canceled", err)
	}

	close(release)
	<-loaderDone

	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("Init after release: %v", err)
	}
	if n := loads.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
}

func TestLazyEmbedder_InitTimeout(t *testing.T) {
	l := NewLazyEmbedder(func(ctx context.Context) (domain.Embedder, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, "test-timeout", 10*time.Millisecond, nil)

	err := l.Init(context.Background())
	if !errors.Is(err, domain.ErrEmbedderNotReady) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want ErrEmbedderNotReady wrapping DeadlineExceeded", err)
	}
}

func TestLazyEmbedder_NilEmbedderIsFailure(t *testing.T) {
	l := NewLazyEmbedder(func(context.Context) (domain.Embedder, error) {
		return nil, nil
	}, "test-nil", time.Second, nil)

	if err := l.Init(context.Background()); !errors.Is(err, domain.ErrEmbedderNotReady) {
		t.Fatalf("error = %v, want ErrEmbedderNotReady", err)
	}
}

func TestLazyEmbedder_HealthCheck(t *testing.T) {
	inner := &mockEmbedder{health: errors.New("degraded")}
	l := NewLazyEmbedder(func(context.Context) (domain.Embedder, error) {
		return inner, nil
	}, "test-health", time.Second, nil)

	if err := l.HealthCheck(context.Background()); !errors.Is(err, domain.ErrEmbedderNotReady) {
		t.Fatalf("HealthCheck before init = %v, want ErrEmbedderNotReady", err)
	}
	if err := l.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.HealthCheck(context.Background()); err == nil || err.Error() != "degraded" {
		t.Fatalf("HealthCheck after init = %v, want inner error", err)
	}
}
