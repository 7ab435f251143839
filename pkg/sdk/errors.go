package exsearch

import "github.com/kailas-cloud/exsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrNotInitialized         = domain.ErrNotInitialized
	ErrEmbedderNotReady       = domain.ErrEmbedderNotReady
	ErrCorpusLoad             = domain.ErrCorpusLoad
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrSearchFailed           = domain.ErrSearchFailed
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrIncompatibleVectors    = domain.ErrIncompatibleVectors
)
