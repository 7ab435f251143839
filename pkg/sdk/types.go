package exsearch

import "time"

// Example is a corpus record without its vector.
type Example struct {
	ID                    string
	Repository            string
	Title                 string
	Summary               string
	Complexity            string
	Language              string
	FeatureTags           []string
	FeaturesToDemonstrate []string
	TargetUsers           []string
	FolderName            *string
	SourceCode            *string
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	Example    Example
	Distance   float64 // L2 distance between unit vectors, 0..2
	Similarity float64 // 0..100, one decimal
}

// SearchResponse is the outcome of a query.
type SearchResponse struct {
	Results        []SearchResult
	Query          string // trimmed query text
	Count          int
	ProcessingTime time.Duration
}

// Stats is the corpus summary.
type Stats struct {
	Count int
}

// Readiness reports initialization state.
type Readiness struct {
	CorpusLoaded   bool
	EmbedderLoaded bool
}

// Ready reports whether queries can be answered without waiting.
func (r Readiness) Ready() bool { return r.CorpusLoaded && r.EmbedderLoaded }
