package domain

// Pooling strategies. Only mean pooling matches the corpus generator.
const (
	PoolingMean = "mean"
)

// VectorConfig holds the vectorization settings shared by the corpus and the query path.
type VectorConfig struct {
	Model         string
	Dimensions    int
	Pooling       string
	NormTolerance float64
}

// DefaultVectorConfig returns the configuration matching the corpus generator
// (sentence-transformers all-MiniLM-L6-v2, mean pooling, L2-normalized).
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:         "all-MiniLM-L6-v2",
		Dimensions:    384,
		Pooling:       PoolingMean,
		NormTolerance: 1e-4,
	}
}
