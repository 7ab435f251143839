package chi

import (
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/exsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/exsearch/internal/usecase/search"
)

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes written to clients.
const (
	ErrorCodeBadRequest   ErrorCode = "bad_request"
	ErrorCodeInvalidQuery ErrorCode = "invalid_query"
	ErrorCodeInvalidInput ErrorCode = "invalid_input"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeNotReady     ErrorCode = "not_ready"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /api/v1/search body.
type SearchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// ExampleResponse is an example without its vector.
type ExampleResponse struct {
	ID                    string   `json:"id"`
	Repository            string   `json:"repository"`
	Title                 string   `json:"title"`
	Summary               string   `json:"summary"`
	Complexity            string   `json:"complexity"`
	Language              string   `json:"language"`
	FeatureTags           []string `json:"feature_tags"`
	FeaturesToDemonstrate []string `json:"features_to_demonstrate"`
	TargetUsers           []string `json:"target_users"`
	FolderName            *string  `json:"folder_name,omitempty"`
	SourceCode            *string  `json:"source_code,omitempty"`
}

// SearchResultItem is a ranked hit.
type SearchResultItem struct {
	ExampleResponse
	Distance   float64 `json:"_distance"`
	Similarity float64 `json:"similarity"`
}

// SearchResponse is the search endpoint body.
type SearchResponse struct {
	Results          []SearchResultItem `json:"results"`
	Query            string             `json:"query"`
	Count            int                `json:"count"`
	ProcessingTimeMs float64            `json:"processingTimeMs"`
}

// StatsResponse is the stats endpoint body.
type StatsResponse struct {
	Count int `json:"count"`
}

// ReadyResponse is the readiness endpoint body.
type ReadyResponse struct {
	Ready          bool `json:"ready"`
	CorpusLoaded   bool `json:"corpusLoaded"`
	EmbedderLoaded bool `json:"embedderLoaded"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func exampleToResponse(ex *example.Example) ExampleResponse {
	m := ex.Metadata()
	return ExampleResponse{
		ID:                    ex.ID(),
		Repository:            m.Repository,
		Title:                 m.Title,
		Summary:               m.Summary,
		Complexity:            m.Complexity,
		Language:              m.Language,
		FeatureTags:           nonNil(m.FeatureTags),
		FeaturesToDemonstrate: nonNil(m.FeaturesToDemonstrate),
		TargetUsers:           nonNil(m.TargetUsers),
		FolderName:            m.FolderName,
		SourceCode:            m.SourceCode,
	}
}

func searchResultToResponse(r *result.Result) SearchResultItem {
	ex := r.Example()
	return SearchResultItem{
		ExampleResponse: exampleToResponse(&ex),
		Distance:        r.Distance(),
		Similarity:      r.Similarity(),
	}
}

func searchToResponse(resp *searchuc.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultToResponse(&resp.Results[i])
	}
	return SearchResponse{
		Results:          items,
		Query:            resp.Query,
		Count:            resp.Count,
		ProcessingTimeMs: resp.ProcessingTimeMs(),
	}
}

func healthToResponse(report healthuc.Report, version string) HealthResponse {
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(report.Status), Checks: checks, Version: version}
}

// nonNil keeps list fields as [] rather than null in JSON.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
