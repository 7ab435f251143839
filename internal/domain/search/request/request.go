package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/exsearch/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum query length in characters, after trimming.
	MaxQueryLength = 500
	DefaultLimit   = 10
	MinLimit       = 1
	MaxLimit       = 50
)

// Request is a validated search query.
type Request struct {
	query string
	limit int
}

// Policy holds the tunable validation bounds. The zero value is not usable; start from DefaultPolicy.
type Policy struct {
	MaxQueryLength int
	DefaultLimit   int
	MaxLimit       int
}

// DefaultPolicy returns the standard bounds: 500 characters, default 10, at most 50 results.
func DefaultPolicy() Policy {
	return Policy{
		MaxQueryLength: MaxQueryLength,
		DefaultLimit:   DefaultLimit,
		MaxLimit:       MaxLimit,
	}
}

// New validates the query text and clamps the limit under the default policy.
// A nil limit means "use DefaultLimit"; out-of-range limits are clamped to [MinLimit, MaxLimit], never rejected.
func New(query string, limit *int) (Request, error) {
	return DefaultPolicy().New(query, limit)
}

// New validates the query text and clamps the limit under p.
func (p Policy) New(query string, limit *int) (Request, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if n := utf8.RuneCountInString(q); n > p.MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (%d chars, max %d)", domain.ErrInvalidQuery, n, p.MaxQueryLength)
	}

	l := p.DefaultLimit
	if limit != nil {
		l = p.ClampLimit(*limit)
	}

	return Request{query: q, limit: l}, nil
}

// ClampLimit pins limit into [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	return DefaultPolicy().ClampLimit(limit)
}

// ClampLimit pins limit into [MinLimit, p.MaxLimit].
func (p Policy) ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > p.MaxLimit {
		return p.MaxLimit
	}
	return limit
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }
