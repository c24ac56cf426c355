package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPrompt = "You are a helpful assistant. Rely **only** on the information supplied in <context>. " +
		"Answer clearly and copy any figures or exact wording exactly as they appear in the source."
	DefaultFallbackPhrase = "Not specified in the document"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64
	MaxFiles    int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	RetrieveTopK int
	RerankTopN   int

	// Prompting
	DefaultPrompt  string
	FallbackPhrase string

	// Generation
	GenerationProvider    string // "gemini"/"google" or "openai"/"ollama" (any OpenAI-compatible endpoint)
	GenerationModel       string
	GenerationBaseURL     string
	GenerationAPIKey      string
	GenerationTimeout     time.Duration
	GenerationTemperature float64
	GeminiAPIKey          string
	GeminiTier            string

	// Embeddings
	EmbeddingsProvider        string // "openai"/"ollama" or "google"/"gemini"
	EmbeddingBaseURL          string
	EmbeddingAPIKey           string
	EmbeddingModel            string
	EmbeddingFallbackProvider string
	EmbeddingFallbackModel    string
	EmbeddingTimeout          time.Duration

	// Reranker
	RerankerURL   string
	RerankerModel string

	// Vector index
	VectorStore     string // "qdrant", "mongo", "pgvector" or "memory"
	QdrantURL       string
	QdrantAPIKey    string
	QdrantBatchSize int
	MongoURI        string
	DBName          string
	DatabaseURL     string

	// Session store
	SessionStore string // "memory", "redis" or "mongo"

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitEnabled bool
	RateLimitReqs    int
	RateLimitWindow  int

	// Background work
	CleanupQueueEnabled  bool
	WorkerConcurrency    int
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Telemetry
	OTelEnabled      bool
	OTelEndpoint     string
	OTelSampleRatio  float64
	OTelServiceName  string
	DeploymentTarget string

	// Optional YAML overlay
	ConfigFile string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitList(getEnv("ALLOWED_ORIGIN", "http://localhost:3000")),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB per request
		MaxFiles:    getEnvInt("MAX_FILES", 20),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 150),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 40),

		RetrieveTopK: getEnvInt("RETRIEVE_TOP_K", 30),
		RerankTopN:   getEnvInt("RERANK_TOP_N", 12),

		DefaultPrompt:  getEnv("DEFAULT_PROMPT", DefaultPrompt),
		FallbackPhrase: getEnv("FALLBACK_PHRASE", DefaultFallbackPhrase),

		GenerationProvider:    strings.ToLower(getEnv("GENERATION_PROVIDER", "openai")),
		GenerationModel:       getEnv("GENERATION_MODEL", "llama3.1:8b"),
		GenerationBaseURL:     getEnv("OLLAMA_URL", "http://localhost:11434/v1"),
		GenerationAPIKey:      getEnv("GENERATION_API_KEY", "ollama"),
		GenerationTimeout:     getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		GenerationTemperature: getEnvFloat64("GENERATION_TEMPERATURE", 0.1),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),

		EmbeddingsProvider:        strings.ToLower(getEnv("EMBEDDINGS_PROVIDER", "openai")),
		EmbeddingBaseURL:          getEnv("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
		EmbeddingAPIKey:           getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:            getEnv("EMBEDDING_MODEL", "bge-large-en"),
		EmbeddingFallbackProvider: strings.ToLower(getEnv("EMBEDDING_FALLBACK_PROVIDER", "")),
		EmbeddingFallbackModel:    getEnv("EMBEDDING_FALLBACK_MODEL", "bge-base-en-v1.5"),
		EmbeddingTimeout:          getEnvDuration("EMBEDDING_TIMEOUT", 60*time.Second),

		RerankerURL:   getEnv("RERANKER_URL", ""),
		RerankerModel: getEnv("RERANKER_MODEL", "cross-encoder/ms-marco-MiniLM-L-12-v2"),

		VectorStore:     strings.ToLower(getEnv("VECTOR_STORE", "qdrant")),
		QdrantURL:       getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:    getEnv("QDRANT_API", ""),
		QdrantBatchSize: getEnvInt("QDRANT_BATCH_SIZE", 64),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017/docqa"),
		DBName:          getEnv("DB_NAME", "docqa"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		SessionStore: strings.ToLower(getEnv("SESSION_STORE", "memory")),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", false),
		RateLimitReqs:    getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:  getEnvInt("RATE_LIMIT_WINDOW", 60),

		CleanupQueueEnabled:  getEnvBool("CLEANUP_QUEUE_ENABLED", false),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 4),
		SessionTTL:           getEnvDuration("SESSION_TTL", 0),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		OTelEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio:  getEnvFloat64("OTEL_SAMPLE_RATIO", 0.1),
		OTelServiceName:  getEnv("OTEL_SERVICE_NAME", "docqa-service"),
		DeploymentTarget: getEnv("DEPLOYMENT_ENV", "development"),

		ConfigFile: getEnv("CONFIG_FILE", ""),
	}

	if cfg.ConfigFile != "" {
		if err := ApplyFile(cfg, cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the pipeline depends on.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be in [0, CHUNK_SIZE=%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.RetrieveTopK <= 0 || c.RerankTopN <= 0 {
		return fmt.Errorf("RETRIEVE_TOP_K and RERANK_TOP_N must be positive")
	}
	if c.RerankTopN >= c.RetrieveTopK {
		return fmt.Errorf("RERANK_TOP_N (%d) must be smaller than RETRIEVE_TOP_K (%d)", c.RerankTopN, c.RetrieveTopK)
	}
	if strings.TrimSpace(c.FallbackPhrase) == "" {
		return fmt.Errorf("FALLBACK_PHRASE must not be empty")
	}

	switch c.GenerationProvider {
	case "gemini", "google":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when GENERATION_PROVIDER=%s - set it in .env file", c.GenerationProvider)
		}
	case "openai", "ollama", "":
		if c.GenerationBaseURL == "" {
			return fmt.Errorf("OLLAMA_URL is required for OpenAI-compatible generation")
		}
	default:
		return fmt.Errorf("unsupported GENERATION_PROVIDER %q", c.GenerationProvider)
	}

	for _, p := range []string{c.EmbeddingsProvider, c.EmbeddingFallbackProvider} {
		switch p {
		case "", "openai", "ollama":
		case "google", "gemini":
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required for google embeddings")
			}
		default:
			return fmt.Errorf("unsupported embeddings provider %q", p)
		}
	}

	switch c.VectorStore {
	case "qdrant":
		if c.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required when VECTOR_STORE=qdrant")
		}
	case "pgvector":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when VECTOR_STORE=pgvector")
		}
	case "mongo", "memory":
	default:
		return fmt.Errorf("unsupported VECTOR_STORE %q", c.VectorStore)
	}

	switch c.SessionStore {
	case "memory", "redis", "mongo":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}

	return nil
}

// AllowsAnyOrigin reports whether ALLOWED_ORIGIN is the wildcard.
func (c *Config) AllowsAnyOrigin() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
