package exsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kailas-cloud/exsearch/internal/db"
	dbBolt "github.com/kailas-cloud/exsearch/internal/db/bolt"
	dbValkey "github.com/kailas-cloud/exsearch/internal/db/valkey"
	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/domain/search/request"
	"github.com/kailas-cloud/exsearch/internal/metrics"
	"github.com/kailas-cloud/exsearch/internal/repository/corpus"
	"github.com/kailas-cloud/exsearch/internal/repository/embcache"
	"github.com/kailas-cloud/exsearch/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/exsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/exsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/exsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/exsearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type searchUseCase interface {
	Search(ctx context.Context, query string, limit *int) (searchuc.Response, error)
	GetByID(ctx context.Context, id string) (example.Example, bool, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
	Ready(ctx context.Context) searchuc.Readiness
}

type warmer interface {
	Init(ctx context.Context) error
}

// Client is the exsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	cache     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	warm      warmer
	obs       *observer
}

// New loads the corpus and prepares the query embedder. The model itself is initialized
// on the first query or by Warm. The provided context bounds corpus loading and the cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	vc := domain.DefaultVectorConfig()
	cfg := &clientConfig{
		dimensions:    vc.Dimensions,
		normTolerance: vc.NormTolerance,
		model:         vc.Model,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.corpusPath == "" && cfg.corpusData == nil {
		return nil, errors.New("exsearch: corpus required (use WithCorpusFile or WithCorpusJSON)")
	}
	if cfg.provider == "" {
		return nil, errors.New("exsearch: embedder required (use WithOpenAI, WithLocalEmbedder or WithEmbedder)")
	}
	if cfg.provider == "custom" && cfg.embedder == nil {
		return nil, errors.New("exsearch: WithEmbedder requires a non-nil embedder")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	store := corpus.New(cfg.dimensions, nil).WithNormTolerance(cfg.normTolerance)
	if cfg.corpusPath != "" {
		err = store.LoadFile(ctx, cfg.corpusPath)
	} else {
		err = store.Load(ctx, cfg.corpusData)
	}
	if err != nil {
		obs.observe("corpus.load", start, err)
		return nil, fmt.Errorf("exsearch: %w", err)
	}
	count, _ := store.Count(ctx)
	obs.observe("corpus.load", start, nil, slog.Int("records", count))

	cache, err := createCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return wireClient(store, cache, cfg, obs), nil
}

func createCache(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	var (
		s   db.Store
		err error
	)
	switch cfg.cacheDriver {
	case "":
		return nil, nil
	case "valkey":
		s, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePass,
		})
	case "bolt":
		s, err = dbBolt.Open(cfg.cachePath)
	default:
		return nil, fmt.Errorf("exsearch: unknown cache driver %q", cfg.cacheDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("exsearch: create %s cache: %w", cfg.cacheDriver, err)
	}

	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("exsearch: cache not ready: %w", err)
	}
	return s, nil
}

func wireClient(store *corpus.Store, cache db.Store, cfg *clientConfig, obs *observer) *Client {
	lazy, embedder := embeddinguc.Chain(newLoader(cfg, cache), embeddinguc.ChainConfig{
		Provider:    cfg.provider,
		Model:       cfg.model,
		Dimensions:  cfg.dimensions,
		InitTimeout: cfg.initTimeout,
	}, nil)

	policy := searchPolicy(cfg)

	var pinger healthuc.CachePinger
	if cache != nil {
		pinger = cache
	}

	return &Client{
		cache:     cache,
		searchSvc: searchuc.New(store, embedder, lazy, searchuc.WithPolicy(policy)),
		healthSvc: healthuc.New(store, embedder, pinger),
		warm:      lazy,
		obs:       obs,
	}
}

func newLoader(cfg *clientConfig, cache db.KVStore) embeddinguc.Loader {
	vc := domain.VectorConfig{
		Model:         cfg.model,
		Dimensions:    cfg.dimensions,
		Pooling:       domain.PoolingMean,
		NormTolerance: cfg.normTolerance,
	}

	return func(ctx context.Context) (domain.Embedder, error) {
		var base domain.Embedder
		switch cfg.provider {
		case "openai":
			e := openaiEmb.NewEmbedder(&openaiEmb.Config{
				APIKey:   cfg.apiKey,
				BaseURL:  cfg.baseURL,
				Model:    cfg.model,
				Provider: cfg.provider,
			})
			if err := e.Probe(ctx, cfg.dimensions); err != nil {
				return nil, err
			}
			base = e
		case "local":
			enc, err := local.NewEncoder(cfg.dimensions, local.DefaultMaxTokens)
			if err != nil {
				return nil, err
			}
			base = embeddinguc.NewPooledEmbedder(enc)
		default:
			base = &embedderAdapter{inner: cfg.embedder}
		}

		if cache != nil {
			base = embcache.New(base, cache, vc, cfg.cacheTTL, metrics.EmbeddingCacheTotal, nil)
		}
		return base, nil
	}
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Warm initializes the embedding model now instead of on the first query.
func (c *Client) Warm(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("warm", start, err) }()

	return c.warm.Init(ctx)
}

// Search returns the examples closest to query, best first.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (_ SearchResponse, err error) {
	var so searchOptions
	for _, o := range opts {
		o(&so)
	}

	start := time.Now()
	var results int
	defer func() { c.obs.observe("search", start, err, slog.Int("results", results)) }()

	resp, err := c.searchSvc.Search(ctx, query, so.limit)
	if err != nil {
		return SearchResponse{}, err
	}
	out := searchResponseFromDomain(&resp)
	results = out.Count
	return out, nil
}

// Get returns an example by exact id. found=false means no such example.
func (c *Client) Get(ctx context.Context, id string) (_ Example, found bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	ex, found, err := c.searchSvc.GetByID(ctx, id)
	if err != nil || !found {
		return Example{}, false, err
	}
	return exampleFromDomain(&ex), true, nil
}

// Stats returns the corpus size.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	st, err := c.searchSvc.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Count: st.Count}, nil
}

// Ready reports whether the corpus and the embedding model are loaded.
func (c *Client) Ready(ctx context.Context) Readiness {
	r := c.searchSvc.Ready(ctx)
	return Readiness{CorpusLoaded: r.CorpusLoaded, EmbedderLoaded: r.EmbedderLoaded}
}

func exampleFromDomain(ex *example.Example) Example {
	m := ex.Metadata()
	return Example{
		ID:                    ex.ID(),
		Repository:            m.Repository,
		Title:                 m.Title,
		Summary:               m.Summary,
		Complexity:            m.Complexity,
		Language:              m.Language,
		FeatureTags:           m.FeatureTags,
		FeaturesToDemonstrate: m.FeaturesToDemonstrate,
		TargetUsers:           m.TargetUsers,
		FolderName:            m.FolderName,
		SourceCode:            m.SourceCode,
	}
}

func searchResponseFromDomain(resp *searchuc.Response) SearchResponse {
	results := make([]SearchResult, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		ex := r.Example()
		results[i] = SearchResult{
			Example:    exampleFromDomain(&ex),
			Distance:   r.Distance(),
			Similarity: r.Similarity(),
		}
	}
	return SearchResponse{
		Results:        results,
		Query:          resp.Query,
		Count:          resp.Count,
		ProcessingTime: resp.ProcessingTime,
	}
}

// searchPolicy applies WithSearchLimits overrides. The package defaults are ceilings.
func searchPolicy(cfg *clientConfig) request.Policy {
	policy := request.DefaultPolicy()
	if cfg.maxQueryLength > 0 {
		policy.MaxQueryLength = min(cfg.maxQueryLength, request.MaxQueryLength)
	}
	if cfg.maxLimit > 0 {
		policy.MaxLimit = min(cfg.maxLimit, request.MaxLimit)
	}
	if cfg.defaultLimit > 0 {
		policy.DefaultLimit = cfg.defaultLimit
	}
	policy.DefaultLimit = min(policy.DefaultLimit, policy.MaxLimit)
	return policy
}
