// Package embcache caches query embeddings in a key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/db"
	"github.com/kailas-cloud/exsearch/internal/domain"
)

// KeyPrefix namespaces every cache key written by this service.
const KeyPrefix = "exsearch:emb_cache:"

// entryVersion is the first byte of every stored entry.
// Bump it when the layout changes; older entries then read as misses.
const entryVersion byte = 1

// entry layout: version(1) | dim(2, LE) | dim × float32(LE)
const entryHeader = 3

var errBadEntry = errors.New("malformed cache entry")

// kvStore is what the cache needs from a store; db.KVStore satisfies it.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder serves repeated queries from a key-value store.
// The store is an optimization only: any read or write failure falls through to the inner embedder.
type CachedEmbedder struct {
	inner   domain.Embedder
	kv      kvStore
	prefix  string // KeyPrefix + model + dim, so a model switch never reads old vectors
	dim     int
	ttl     time.Duration
	results *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner with a cache in s. results counts lookups by label "result" (hit, miss) and may be nil.
// ttl of zero stores entries without expiry.
func New(
	inner domain.Embedder,
	s kvStore,
	cfg domain.VectorConfig,
	ttl time.Duration,
	results *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:   inner,
		kv:      s,
		prefix:  KeyPrefix + cfg.Model + ":" + strconv.Itoa(cfg.Dimensions) + ":",
		dim:     cfg.Dimensions,
		ttl:     ttl,
		results: results,
		logger:  logger.With(zap.String("component", "embcache")),
	}
}

// Embed serves text from the cache or computes and stores it.
// Hits report zero tokens since the provider was not called.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec := c.lookup(ctx, key); vec != nil {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if len(res.Embedding) > 0 {
		c.store(ctx, key, res.Embedding)
	}
	return res, nil
}

// HealthCheck reports the inner embedder's health. Cache health is checked separately.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// lookup returns nil on any kind of miss: absent, unreadable or stale.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) []float32 {
	raw, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil
	case err != nil:
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	vec, err := decodeEntry(raw, c.dim)
	if err != nil {
		c.logger.Warn("Discarding cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	return vec
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if err := c.kv.SetWithTTL(ctx, key, encodeEntry(vec), c.ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.results == nil {
		return
	}
	c.results.WithLabelValues(result).Inc()
}

func encodeEntry(vec []float32) []byte {
	buf := make([]byte, entryHeader+4*len(vec))
	buf[0] = entryVersion
	binary.LittleEndian.PutUint16(buf[1:], uint16(len(vec)))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[entryHeader+4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeEntry checks the header against wantDim (0 accepts any) before reading the payload.
func decodeEntry(raw []byte, wantDim int) ([]float32, error) {
	if len(raw) < entryHeader {
		return nil, fmt.Errorf("%w: %d bytes", errBadEntry, len(raw))
	}
	if raw[0] != entryVersion {
		return nil, fmt.Errorf("%w: version %d", errBadEntry, raw[0])
	}
	dim := int(binary.LittleEndian.Uint16(raw[1:]))
	if dim == 0 || len(raw) != entryHeader+4*dim {
		return nil, fmt.Errorf("%w: header says %d components, payload is %d bytes", errBadEntry, dim, len(raw)-entryHeader)
	}
	if wantDim > 0 && dim != wantDim {
		return nil, fmt.Errorf("%w: %d components, want %d", errBadEntry, dim, wantDim)
	}

	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[entryHeader+4*i:]))
	}
	return vec, nil
}
