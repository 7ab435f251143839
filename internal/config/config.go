package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/exsearch/internal/domain"
	"github.com/kailas-cloud/exsearch/internal/domain/search/request"
)

// Config holds the exsearch service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty = auth disabled
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig holds the static example corpus settings.
type CorpusConfig struct {
	Path            string  `yaml:"path"`
	Dimensions      int     `yaml:"dimensions"`
	NormTolerance   float64 `yaml:"norm_tolerance"`
	CompatCheck     string  `yaml:"compat_check"` // off, warn, fail
	CompatSample    int     `yaml:"compat_sample"`
	CompatMinCosine float64 `yaml:"compat_min_cosine"`
}

// EmbeddingConfig holds the query embedding model settings.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"` // openai, local
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	RequestDimensions int    `yaml:"request_dimensions"` // sent to the API when > 0
	Pooling           string `yaml:"pooling"`
	InitTimeoutSec    int    `yaml:"init_timeout_sec"`
	EagerInit         *bool  `yaml:"eager_init"` // initialize before serving (default true)
}

// CacheConfig holds query-embedding cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // "", valkey, bolt
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds query validation bounds.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	MaxQueryLength int `yaml:"max_query_length"`
}

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Cache drivers.
const (
	CacheNone   = ""
	CacheValkey = "valkey"
	CacheBolt   = "bolt"
)

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	vc := domain.DefaultVectorConfig()
	if c.Corpus.Dimensions <= 0 {
		c.Corpus.Dimensions = vc.Dimensions
	}
	if c.Corpus.NormTolerance <= 0 {
		c.Corpus.NormTolerance = vc.NormTolerance
	}
	if c.Corpus.CompatCheck == "" {
		c.Corpus.CompatCheck = "warn"
	}
	if c.Corpus.CompatSample <= 0 {
		c.Corpus.CompatSample = 3
	}
	if c.Corpus.CompatMinCosine <= 0 {
		c.Corpus.CompatMinCosine = 0.95
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vc.Model
	}
	if c.Embedding.Pooling == "" {
		c.Embedding.Pooling = vc.Pooling
	}
	if c.Embedding.InitTimeoutSec <= 0 {
		c.Embedding.InitTimeoutSec = 120
	}
	if c.Embedding.EagerInit == nil {
		eager := true
		c.Embedding.EagerInit = &eager
	}

	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = request.DefaultLimit
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = request.MaxLimit
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = request.MaxQueryLength
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return errors.New("corpus.path is required")
	}
	switch c.Corpus.CompatCheck {
	case "off", "warn", "fail":
	default:
		return fmt.Errorf("corpus.compat_check must be \"off\", \"warn\" or \"fail\", got %q", c.Corpus.CompatCheck)
	}
	if c.Corpus.CompatMinCosine > 1 {
		return fmt.Errorf("corpus.compat_min_cosine must be at most 1, got %g", c.Corpus.CompatMinCosine)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.BaseURL == "" {
			return errors.New("embedding.base_url is required for provider \"openai\"")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"local\", got %q", c.Embedding.Provider)
	}
	// корпус построен mean pooling + L2; любой другой пулинг молча ломает ранжирование
	if c.Embedding.Pooling != domain.PoolingMean {
		return fmt.Errorf("embedding.pooling must be %q to match the corpus, got %q", domain.PoolingMean, c.Embedding.Pooling)
	}

	switch c.Cache.Driver {
	case CacheNone:
	case CacheValkey:
		if len(c.Cache.Addrs) == 0 {
			return errors.New("cache.addrs is required for driver \"valkey\"")
		}
	case CacheBolt:
		if c.Cache.Path == "" {
			return errors.New("cache.path is required for driver \"bolt\"")
		}
	default:
		return fmt.Errorf("cache.driver must be empty, \"valkey\" or \"bolt\", got %q", c.Cache.Driver)
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTLSec)
	}

	if c.Search.MaxLimit < request.MinLimit || c.Search.MaxLimit > request.MaxLimit {
		return fmt.Errorf("search.max_limit must be in [%d, %d], got %d",
			request.MinLimit, request.MaxLimit, c.Search.MaxLimit)
	}
	if c.Search.MaxQueryLength > request.MaxQueryLength {
		return fmt.Errorf("search.max_query_length must not exceed %d, got %d",
			request.MaxQueryLength, c.Search.MaxQueryLength)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) must not exceed search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// VectorConfig returns the vectorization settings derived from corpus and embedding sections.
func (c *Config) VectorConfig() domain.VectorConfig {
	return domain.VectorConfig{
		Model:         c.Embedding.Model,
		Dimensions:    c.Corpus.Dimensions,
		Pooling:       c.Embedding.Pooling,
		NormTolerance: c.Corpus.NormTolerance,
	}
}

// SearchPolicy returns the query validation bounds.
func (c *Config) SearchPolicy() request.Policy {
	return request.Policy{
		MaxQueryLength: c.Search.MaxQueryLength,
		DefaultLimit:   c.Search.DefaultLimit,
		MaxLimit:       c.Search.MaxLimit,
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
