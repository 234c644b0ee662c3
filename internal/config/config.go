package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jmlee-dev/guidebot-backend/pkg/chunker"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Qdrant   QdrantConfig
	LLM      LLMConfig
	Chunking ChunkingConfig
	Search   SearchConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QdrantConfig struct {
	Host                string
	Port                int
	GuidebookCollection string
	BenefitsCollection  string
	Dimension           int
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	EmbeddingModel   string
	MaxRetries       int
}

type ChunkingConfig struct {
	Size    int
	Overlap int
	// Strategy is "auto", "toc", "semantic" or "fixed". Auto prefers TOC
	// sections when headings are found and falls back to semantic.
	Strategy string
}

// SearchConfig carries the fused ranking weights and result sizing. Alpha
// weighs vector similarity, Beta the featured flag, Gamma recency.
type SearchConfig struct {
	Alpha              float64
	Beta               float64
	Gamma              float64
	TopK               int
	CandidateK         int
	MTEnabled          bool
	TranslateCacheSize int
}

type StorageConfig struct {
	Dir          string
	GuidebookDir string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	qdrantPort, err := getEnvInt("QDRANT_PORT", 6334)
	if err != nil {
		return nil, fmt.Errorf("invalid QDRANT_PORT: %w", err)
	}

	dimension, err := getEnvInt("QDRANT_DIMENSION", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid QDRANT_DIMENSION: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	alpha, err := getEnvFloat("SEARCH_ALPHA", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_ALPHA: %w", err)
	}

	beta, err := getEnvFloat("SEARCH_BETA", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_BETA: %w", err)
	}

	gamma, err := getEnvFloat("SEARCH_GAMMA", 0.1)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_GAMMA: %w", err)
	}

	topK, err := getEnvInt("SEARCH_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_TOP_K: %w", err)
	}

	candidateK, err := getEnvInt("SEARCH_CANDIDATE_K", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_CANDIDATE_K: %w", err)
	}

	translateCacheSize, err := getEnvInt("TRANSLATE_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSLATE_CACHE_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Qdrant: QdrantConfig{
			Host:                getEnv("QDRANT_HOST", "localhost"),
			Port:                qdrantPort,
			GuidebookCollection: getEnv("QDRANT_GUIDEBOOK_COLLECTION", "guidebook_chunks"),
			BenefitsCollection:  getEnv("QDRANT_BENEFITS_COLLECTION", "benefits"),
			Dimension:           dimension,
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			MaxRetries:       maxRetries,
		},
		Chunking: ChunkingConfig{
			Size:     chunkSize,
			Overlap:  chunkOverlap,
			Strategy: getEnv("CHUNK_STRATEGY", "auto"),
		},
		Search: SearchConfig{
			Alpha:              alpha,
			Beta:               beta,
			Gamma:              gamma,
			TopK:               topK,
			CandidateK:         candidateK,
			MTEnabled:          getEnvBool("SEARCH_MT_ENABLED", false),
			TranslateCacheSize: translateCacheSize,
		},
		Storage: StorageConfig{
			Dir:          getEnv("STORAGE_DIR", "data/uploads"),
			GuidebookDir: getEnv("GUIDEBOOK_DIR", "data/guidebooks"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) QdrantAddr() string {
	return fmt.Sprintf("%s:%d", c.Qdrant.Host, c.Qdrant.Port)
}

func (c *Config) ChunkerOptions() chunker.Options {
	return chunker.Options{
		ChunkSize:    c.Chunking.Size,
		ChunkOverlap: c.Chunking.Overlap,
	}
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if err := c.ChunkerOptions().Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}
	switch c.Chunking.Strategy {
	case "auto", "toc", "semantic", "fixed":
	default:
		return fmt.Errorf("invalid CHUNK_STRATEGY: %s", c.Chunking.Strategy)
	}
	if c.Search.TopK <= 0 || c.Search.CandidateK <= 0 {
		return fmt.Errorf("search result sizes must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
