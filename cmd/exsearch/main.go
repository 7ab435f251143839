package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/exsearch/internal/config"
	"github.com/kailas-cloud/exsearch/internal/db"
	dbBolt "github.com/kailas-cloud/exsearch/internal/db/bolt"
	dbValkey "github.com/kailas-cloud/exsearch/internal/db/valkey"
	"github.com/kailas-cloud/exsearch/internal/domain"
	logpkg "github.com/kailas-cloud/exsearch/internal/logger"
	"github.com/kailas-cloud/exsearch/internal/metrics"
	"github.com/kailas-cloud/exsearch/internal/repository/corpus"
	"github.com/kailas-cloud/exsearch/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/exsearch/internal/transport/chi"
	"github.com/kailas-cloud/exsearch/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/exsearch/internal/transport/openai"
	"github.com/kailas-cloud/exsearch/internal/usecase/compat"
	embeddinguc "github.com/kailas-cloud/exsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/exsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/exsearch/internal/usecase/search"
	"github.com/kailas-cloud/exsearch/internal/version"
)

func main() {
	// Load configuration based on ENV (CONFIG_PATH overrides the lookup)
	env := config.GetEnv()

	cfg, err := loadConfig(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting exsearch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus", cfg.Corpus.Path),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Corpus: loaded once, fatal on any record error
	store := corpus.New(cfg.Corpus.Dimensions, logger).WithNormTolerance(cfg.Corpus.NormTolerance)
	if err := store.LoadFile(ctx, cfg.Corpus.Path); err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	count, _ := store.Count(ctx)
	metrics.CorpusRecords.Set(float64(count))

	// Optional query-embedding cache
	cache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to open embedding cache", zap.Error(err))
	}
	if cache != nil {
		defer cache.Close()
		logger.Info("Embedding cache ready", zap.String("driver", cfg.Cache.Driver))
	}

	// Embedder chain: loader, cache, lazy gate, metrics, contract
	vc := cfg.VectorConfig()
	lazy, embedder := embeddinguc.Chain(
		newLoader(cfg, cache, logger),
		embeddinguc.ChainConfig{
			Provider:    cfg.Embedding.Provider,
			Model:       vc.Model,
			Dimensions:  vc.Dimensions,
			InitTimeout: time.Duration(cfg.Embedding.InitTimeoutSec) * time.Second,
		},
		logger,
	)

	searchSvc := searchuc.New(store, embedder, lazy, searchuc.WithPolicy(cfg.SearchPolicy()))

	// Pass nil interface (not typed nil pointer) when no cache is configured.
	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	healthSvc := healthuc.New(store, embedder, cachePinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Warm-up runs while /ready answers 503; searches during it wait on the shared init.
	if *cfg.Embedding.EagerInit {
		g.Go(func() error {
			return warmUp(gctx, cfg, lazy, embedder, store, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func loadConfig(env string) (config.Config, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(env)
}

// openCache returns nil when no cache driver is configured.
func openCache(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.CacheNone:
		return nil, nil
	case config.CacheValkey:
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	case config.CacheBolt:
		store, err = dbBolt.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	return store, nil
}

// newLoader builds the model on first use: provider client (probed for dimension) wrapped in the cache.
func newLoader(cfg config.Config, cache db.KVStore, logger *zap.Logger) embeddinguc.Loader {
	vc := cfg.VectorConfig()
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second

	return func(ctx context.Context) (domain.Embedder, error) {
		var base domain.Embedder
		switch cfg.Embedding.Provider {
		case config.ProviderOpenAI:
			e := openaiEmb.NewEmbedder(&openaiEmb.Config{
				APIKey:     cfg.Embedding.APIKey,
				BaseURL:    cfg.Embedding.BaseURL,
				Model:      vc.Model,
				Dimensions: cfg.Embedding.RequestDimensions,
				Provider:   cfg.Embedding.Provider,
				Logger:     logger,
			})
			// модель должна отдавать ровно D компонент, иначе ранжирование бессмысленно
			if err := e.Probe(ctx, vc.Dimensions); err != nil {
				return nil, err
			}
			base = e
		case config.ProviderLocal:
			enc, err := local.NewEncoder(vc.Dimensions, local.DefaultMaxTokens)
			if err != nil {
				return nil, err
			}
			base = embeddinguc.NewPooledEmbedder(enc)
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
		}

		if cache != nil {
			base = embcache.New(base, cache, vc, ttl, metrics.EmbeddingCacheTotal, logger)
		}
		return base, nil
	}
}

// warmUp initializes the model and checks the corpus was embedded by a compatible model.
// Only a failed check in "fail" mode stops the server; init failures are retried on demand.
func warmUp(
	ctx context.Context,
	cfg config.Config,
	lazy *embeddinguc.LazyEmbedder,
	embedder domain.Embedder,
	store *corpus.Store,
	logger *zap.Logger,
) error {
	if err := lazy.Init(ctx); err != nil {
		logger.Warn("Embedder warm-up failed, will retry on first query", zap.Error(err))
		return nil
	}

	examples, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("compat check: %w", err)
	}
	checker := compat.New(compat.Config{
		Mode:      compat.Mode(cfg.Corpus.CompatCheck),
		Sample:    cfg.Corpus.CompatSample,
		MinCosine: cfg.Corpus.CompatMinCosine,
	}, embedder, logger)

	if _, err := checker.Run(ctx, examples); err != nil {
		if errors.Is(err, domain.ErrIncompatibleVectors) || cfg.Corpus.CompatCheck == string(compat.ModeFail) {
			return fmt.Errorf("compat check: %w", err)
		}
		logger.Warn("Vector compatibility check skipped", zap.Error(err))
	}
	return nil
}
