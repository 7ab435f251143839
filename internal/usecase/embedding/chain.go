package embedding

import (
	"time"

	"go.uber.org/zap"
)

// ChainConfig describes the serving chain around a model loader.
type ChainConfig struct {
	Provider    string
	Model       string
	Dimensions  int
	InitTimeout time.Duration
}

// Chain assembles the query embedder: Contract -> Instrumented -> Lazy -> loaded model.
// The returned LazyEmbedder drives initialization and readiness; the ContractEmbedder serves queries.
func Chain(load Loader, cfg ChainConfig, logger *zap.Logger) (*LazyEmbedder, *ContractEmbedder) {
	lazy := NewLazyEmbedder(load, cfg.Provider, cfg.InitTimeout, logger)
	instrumented := NewInstrumentedEmbedder(lazy, cfg.Provider, cfg.Model, logger)
	return lazy, NewContractEmbedder(instrumented, cfg.Dimensions)
}
