package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/example"
	"github.com/kailas-cloud/exsearch/internal/logger"
	"github.com/kailas-cloud/exsearch/internal/metrics"
	"github.com/kailas-cloud/exsearch/internal/version"
	healthuc "github.com/kailas-cloud/exsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/exsearch/internal/usecase/search"
)

// maxBodyBytes caps the search request body; a query is at most a few KB of UTF-8.
const maxBodyBytes = 64 << 10

// SearchService is the search use case consumed by the HTTP layer.
type SearchService interface {
	Search(ctx context.Context, query string, limit *int) (searchuc.Response, error)
	GetByID(ctx context.Context, id string) (example.Example, bool, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
	Ready(ctx context.Context) searchuc.Readiness
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the exsearch HTTP API.
type Server struct {
	search        SearchService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	// порядок важен: SearchFailed оборачивает not-ready ошибки, они должны матчиться раньше 500
	s.errorHandlers = []errorHandler{
		detailHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		detailHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeInvalidInput),
		sentinelHandler(domain.ErrNotInitialized, http.StatusServiceUnavailable, ErrorCodeNotReady),
		sentinelHandler(domain.ErrEmbedderNotReady, http.StatusServiceUnavailable, ErrorCodeNotReady),
	}
	return s
}

// Handler builds the router with the middleware stack.
// apiKeys enables bearer authentication when non-empty.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.SearchQuery)
		r.Post("/search", s.SearchBody)
		r.Get("/examples/{id}", s.GetExample)
		r.Get("/stats", s.Stats)
	})
	return r
}

// SearchQuery handles GET /api/v1/search?q=...&limit=...
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit *int
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery, "limit must be an integer")
			return
		}
		limit = &n
	}

	s.doSearch(w, r, q.Get("q"), limit)
}

// SearchBody handles POST /api/v1/search.
func (s *Server) SearchBody(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.doSearch(w, r, req.Query, req.Limit)
}

func (s *Server) doSearch(w http.ResponseWriter, r *http.Request, query string, limit *int) {
	resp, err := s.search.Search(r.Context(), query, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(&resp))
}

// GetExample handles GET /api/v1/examples/{id}.
func (s *Server) GetExample(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ex, found, err := s.search.GetByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, fmt.Sprintf("example %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, exampleToResponse(&ex))
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Count: st.Count})
}

// Ready handles GET /ready: 200 only once both the corpus and the embedder are loaded.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	rd := s.search.Ready(r.Context())
	status := http.StatusOK
	if !rd.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ReadyResponse{
		Ready:          rd.Ready(),
		CorpusLoaded:   rd.CorpusLoaded,
		EmbedderLoaded: rd.EmbedderLoaded,
	})
}

// HealthCheck handles GET /health. Degraded still answers 200: search can serve.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthToResponse(report, version.Version))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler answers with the sentinel text only, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// detailHandler answers with the full validation message.
// Errors raised past validation carry the stage chain, so only the sentinel text is shown for them.
func detailHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := err.Error()
		if errors.Is(err, domain.ErrSearchFailed) {
			msg = sentinel.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}
