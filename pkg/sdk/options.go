package exsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	corpusPath string
	corpusData []byte

	dimensions    int
	normTolerance float64

	embedder    Embedder
	provider    string // "openai", "local" or "custom"
	baseURL     string
	apiKey      string
	model       string
	initTimeout time.Duration

	cacheDriver string // "", "valkey", "bolt"
	cacheAddrs  []string
	cachePass   string
	cachePath   string
	cacheTTL    time.Duration

	maxQueryLength int
	defaultLimit   int
	maxLimit       int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCorpusFile loads the corpus from a JSON file.
func WithCorpusFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusPath = path
		c.corpusData = nil
	})
}

// WithCorpusJSON loads the corpus from an in-memory JSON array.
func WithCorpusJSON(data []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusData = data
		c.corpusPath = ""
	})
}

// WithDimensions sets the corpus vector dimension. Defaults to 384 (all-MiniLM-L6-v2).
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithNormTolerance sets how far a stored vector's norm may deviate from 1.
func WithNormTolerance(tol float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.normTolerance = tol
	})
}

// WithEmbedder sets a custom query embedder.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.provider = "custom"
	})
}

// WithOpenAI uses an OpenAI-compatible embeddings endpoint serving the corpus model.
func WithOpenAI(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = "openai"
		c.baseURL = baseURL
		c.apiKey = apiKey
		c.model = model
	})
}

// WithLocalEmbedder uses the in-process hashed-token encoder.
// Only meaningful for corpora embedded with the same encoder (tests, development).
func WithLocalEmbedder() Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = "local"
	})
}

// WithInitTimeout bounds a single embedder initialization attempt.
func WithInitTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.initTimeout = d
	})
}

// WithValkeyCache caches query embeddings in Valkey.
func WithValkeyCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.cachePass = password
	})
}

// WithBoltCache caches query embeddings in a local bbolt file.
func WithBoltCache(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "bolt"
		c.cachePath = path
	})
}

// WithCacheTTL sets the cached embedding lifetime. Zero keeps entries forever.
// Valkey expiry has one-second granularity, so shorter positive TTLs are rounded up to a second.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithSearchLimits overrides query validation bounds. Non-positive values keep the defaults (500, 10, 50).
// The defaults are also the ceilings: larger values are capped.
func WithSearchLimits(maxQueryLength, defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxQueryLength = maxQueryLength
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// SearchOption configures a single query.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit *int
}

// WithLimit sets the maximum number of results. Values outside [1, max] are clamped.
func WithLimit(n int) SearchOption {
	return func(o *searchOptions) {
		o.limit = &n
	}
}
