package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	// CorpusPath points at a .json, .json.gz or SQLite .db corpus.
	CorpusPath string

	LLMBaseURL               string
	LLMAPIKey                string
	LLMModelName             string
	LLMTimeout               time.Duration
	KeywordExtractionEnabled bool

	SemanticSearchEnabled bool
	EmbeddingBaseURL      string
	EmbeddingAPIKey       string
	EmbeddingModelName    string
	EmbeddingTimeout      time.Duration

	// QdrantURL is empty when the vector store is disabled.
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	HumainsLoginURL  string
	HumainsInjectURL string
	HumainsUsername  string
	HumainsPassword  string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	LoadDotEnv()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the nearest .env file, searching the current directory
// and up to four parents. Missing files are ignored.
func LoadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// FromEnv builds a Config from the environment without checking required fields.
// The CLI uses it directly and fills the gaps from flags.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIPort:    getEnv("API_PORT", "5000"),
		LogFormat:  strings.ToLower(getEnv("LOG_FORMAT", "text")),
		CorpusPath: getEnv("CORPUS_PATH", ""),

		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:    getEnv("GROQ_API_KEY", getEnv("LLM_API_KEY", "")),
		LLMModelName: getEnv("LLM_MODEL", "moonshotai/kimi-k2-instruct-0905"),

		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", "")),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		QdrantURL:        getEnv("QDRANT_URL", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "maamarim"),

		HumainsLoginURL:  getEnv("HUMAINS_LOGIN_URL", ""),
		HumainsInjectURL: getEnv("HUMAINS_INJECT_URL", ""),
		HumainsUsername:  getEnv("HUMAINS_USERNAME", ""),
		HumainsPassword:  getEnv("HUMAINS_PASSWORD", ""),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
	}

	var err error
	if cfg.KeywordExtractionEnabled, err = getEnvBool("KEYWORD_EXTRACTION_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.SemanticSearchEnabled, err = getEnvBool("ENABLE_SEMANTIC_SEARCH", false); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = getEnvDuration("LLM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.EmbeddingTimeout, err = getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// Must match the output size of the embedding model. If it changes, the
	// Qdrant collection has to be recreated.
	if vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", ""); vectorSizeStr != "" {
		vectorSize, err := strconv.Atoi(vectorSizeStr)
		if err != nil {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
		}
		cfg.QdrantVectorSize = vectorSize
	}

	return cfg, nil
}

// Validate checks the fields the API server cannot run without.
func (c *Config) Validate() error {
	if c.CorpusPath == "" {
		return fmt.Errorf("CORPUS_PATH is required")
	}
	if !IsCorpusPath(c.CorpusPath) {
		return fmt.Errorf("CORPUS_PATH must end in .json, .json.gz or .db: %s", c.CorpusPath)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.QdrantEnabled() && c.QdrantVectorSize <= 0 {
		return fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0 when QDRANT_URL is set")
	}
	return nil
}

// QdrantEnabled reports whether a vector store is configured.
func (c *Config) QdrantEnabled() bool {
	return c.QdrantURL != ""
}

// IsCorpusPath reports whether path has a supported corpus extension.
func IsCorpusPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".json.gz") || IsDatabasePath(lower)
}

// IsDatabasePath reports whether path names a SQLite corpus.
func IsDatabasePath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".db")
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("10s") or plain seconds ("10").
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
