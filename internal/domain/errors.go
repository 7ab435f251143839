package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed argument (empty text, blank id).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidQuery signals a search query that failed validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotInitialized signals that the corpus has not been loaded yet.
	ErrNotInitialized = errors.New("corpus not initialized")
	// ErrEmbedderNotReady signals that the embedding model is not loaded.
	ErrEmbedderNotReady = errors.New("embedder not ready")
	// ErrCorpusLoad signals a fatal corpus load failure.
	ErrCorpusLoad = errors.New("corpus load failed")
	// ErrDimensionMismatch signals a vector of unexpected length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrSearchFailed wraps any downstream failure during a request.
	ErrSearchFailed = errors.New("search failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIncompatibleVectors signals that query embeddings do not match the corpus embeddings.
	ErrIncompatibleVectors = errors.New("query embeddings incompatible with corpus")
)

// CorpusError wraps ErrCorpusLoad with the offending source and record.
type CorpusError struct {
	Source string // file path or "<memory>"
	Record int    // zero-based record index, -1 when not record specific
	Err    error
}

func (e *CorpusError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("%s: %s: record %d: %v", ErrCorpusLoad.Error(), e.Source, e.Record, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCorpusLoad.Error(), e.Source, e.Err)
}

// Unwrap exposes both the load sentinel and the underlying cause.
func (e *CorpusError) Unwrap() []error { return []error{ErrCorpusLoad, e.Err} }

// NewCorpusError creates a corpus load error for the given source and record.
func NewCorpusError(source string, record int, err error) error {
	return &CorpusError{Source: source, Record: record, Err: err}
}
