package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/metrics"
)

// readinessText is embedded once at startup to learn the served vector size.
const readinessText = "semantic search over code examples"

// Config holds the embedding endpoint settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions is sent as the request's dimensions field. Zero lets the server decide;
	// sentence-transformers servers reject it, so it is usually left unset.
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// Embedder talks to an OpenAI-compatible /embeddings endpoint: text-embeddings-inference,
// infinity, vLLM or any server hosting the sentence-transformers model the corpus was built with.
// Request counts and latency belong to the instrumented wrapper; this layer only
// records what the wire shows: token usage and provider failures.
type Embedder struct {
	client   *openai.Client
	template openai.EmbeddingRequest
	provider string
	model    string
	logger   *zap.Logger
}

// NewEmbedder creates an embedder for the configured endpoint.
func NewEmbedder(cfg *Config) *Embedder {
	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = cfg.BaseURL

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Embedder{
		client: openai.NewClientWithConfig(cc),
		template: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(cfg.Model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     max(cfg.Dimensions, 0),
		},
		provider: cfg.Provider,
		model:    cfg.Model,
		logger:   log,
	}
}

// Embed returns the sentence vector for text as served by the endpoint.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := e.template
	req.Input = []string{text}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		// отмена вызывающим не считается отказом провайдера
		if cerr := ctx.Err(); cerr != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("create embeddings: %w", cerr)
		}
		return domain.EmbeddingResult{}, e.fail("api_error", describe(err))
	}

	vec := firstVector(resp.Data)
	if vec == nil {
		return domain.EmbeddingResult{}, e.fail("empty_response", "response carries no embedding")
	}

	if u := resp.Usage; u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(u.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// firstVector picks the embedding for input 0. Servers are not required to keep data ordered.
func firstVector(data []openai.Embedding) []float32 {
	for i := range data {
		if data[i].Index == 0 && len(data[i].Embedding) > 0 {
			return data[i].Embedding
		}
	}
	return nil
}

func (e *Embedder) fail(kind, msg string) error {
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, kind).Inc()
	return fmt.Errorf("%w: %s", domain.ErrEmbeddingProviderError, msg)
}

// HealthCheck lists models; the call costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Probe embeds a fixed sentence and fails unless the endpoint returns wantDim components.
// A model swap behind the same URL shows up here before any query is ranked.
func (e *Embedder) Probe(ctx context.Context, wantDim int) error {
	res, err := e.Embed(ctx, readinessText)
	if err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	if got := len(res.Embedding); got != wantDim {
		return fmt.Errorf("%w: model %s returns %d dimensions, corpus uses %d",
			domain.ErrDimensionMismatch, e.model, got, wantDim)
	}
	e.logger.Info("Embedding endpoint probed",
		zap.String("provider", e.provider),
		zap.String("model", e.model),
		zap.Int("dimensions", wantDim),
	)
	return nil
}

// describe turns a client error into a short message with the HTTP status and server reason.
func describe(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		reason := serverReason(reqErr.Body)
		if reason == "" {
			reason = strings.TrimSpace(string(reqErr.Body))
		}
		return fmt.Sprintf("HTTP %d: %s", reqErr.HTTPStatusCode, reason)
	}

	return "request failed"
}

// serverReason reads error bodies that are not in OpenAI format:
// {"detail": "..."} from FastAPI-based servers and {"error": "...", "error_type": "..."}
// from text-embeddings-inference.
func serverReason(body []byte) string {
	var parsed struct {
		Detail    string `json:"detail"`
		Error     string `json:"error"`
		ErrorType string `json:"error_type"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	switch {
	case parsed.Detail != "":
		return parsed.Detail
	case parsed.Error != "" && parsed.ErrorType != "":
		return parsed.ErrorType + ": " + parsed.Error
	default:
		return parsed.Error
	}
}
