package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for resemantic
type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Embedding  EmbeddingConfig  `json:"embedding"`
	Graph      GraphConfig      `json:"graph"`
	Archive    ArchiveConfig    `json:"archive"`
	Extraction ExtractionConfig `json:"extraction"`
	Worker     WorkerConfig     `json:"worker"`
	Server     ServerConfig     `json:"server"`
}

// LLMConfig holds the extraction LLM API configuration (any
// OpenAI-compatible endpoint)
type LLMConfig struct {
	URL            string  `json:"url"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"` // per completion request
}

// EmbeddingConfig holds embedding API configuration
type EmbeddingConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`           // e.g., "text-embedding-3-small"
	Dimensions     int    `json:"dimensions"`      // e.g., 1536 for text-embedding-3-small
	BatchSize      int    `json:"batch_size"`      // max texts per embeddings request
	TimeoutSeconds int    `json:"timeout_seconds"` // per embeddings request
}

// GraphConfig holds the Postgres+pgvector graph store connection
type GraphConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ArchiveConfig holds the SQLite lineage archive location
type ArchiveConfig struct {
	Path string `json:"path"`
}

// ExtractionConfig holds the pipeline tunables
type ExtractionConfig struct {
	Version             string  `json:"version"`               // "v1" or "v2"
	ContextMaxMessages  int     `json:"context_max_messages"`  // history window for Stage 1 prompts
	SimilarityThreshold float64 `json:"similarity_threshold"`  // minimum cosine similarity for COHERENT edges
	TopKNeighbors       int     `json:"top_k_neighbors"`       // kNN size for the semantic neighborhood
}

// WorkerConfig sizes the background pipeline pool
type WorkerConfig struct {
	Count     int `json:"count"`      // worker goroutines
	QueueSize int `json:"queue_size"` // buffered queue of pending turns
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".resemantic")

	return &Config{
		LLM: LLMConfig{
			URL:            "http://localhost:8000/v1",
			APIKey:         "",
			Model:          "Qwen/Qwen3-8B-AWQ",
			MaxTokens:      1500,
			Temperature:    0.3,
			TimeoutSeconds: 60,
		},
		Embedding: EmbeddingConfig{
			URL:            "http://localhost:11434/v1",
			APIKey:         "",
			Model:          "text-embedding-3-small",
			Dimensions:     1536,
			BatchSize:      100,
			TimeoutSeconds: 30,
		},
		Graph: GraphConfig{
			PostgresURL: "postgres://localhost:5432/resemantic",
		},
		Archive: ArchiveConfig{
			Path: filepath.Join(dataDir, "archive.db"),
		},
		Extraction: ExtractionConfig{
			Version:             "v1",
			ContextMaxMessages:  2,
			SimilarityThreshold: 0.4,
			TopKNeighbors:       10,
		},
		Worker: WorkerConfig{
			Count:     4,
			QueueSize: 64,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("RESEMANTIC_LLM_URL", &cfg.LLM.URL)
	envString("RESEMANTIC_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("RESEMANTIC_LLM_MODEL", &cfg.LLM.Model)
	envInt("RESEMANTIC_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("RESEMANTIC_LLM_TEMPERATURE", &cfg.LLM.Temperature)
	envInt("RESEMANTIC_LLM_TIMEOUT_SECONDS", &cfg.LLM.TimeoutSeconds)

	envString("RESEMANTIC_EMBEDDING_URL", &cfg.Embedding.URL)
	envString("RESEMANTIC_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("RESEMANTIC_EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("RESEMANTIC_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)
	envInt("RESEMANTIC_EMBEDDING_BATCH_SIZE", &cfg.Embedding.BatchSize)
	envInt("RESEMANTIC_EMBEDDING_TIMEOUT_SECONDS", &cfg.Embedding.TimeoutSeconds)

	envString("RESEMANTIC_POSTGRES_URL", &cfg.Graph.PostgresURL)
	envString("RESEMANTIC_ARCHIVE_PATH", &cfg.Archive.Path)

	envString("RESEMANTIC_EXTRACTION_VERSION", &cfg.Extraction.Version)
	envInt("RESEMANTIC_CONTEXT_MAX_MESSAGES", &cfg.Extraction.ContextMaxMessages)
	envFloat("RESEMANTIC_SIMILARITY_THRESHOLD", &cfg.Extraction.SimilarityThreshold)
	envInt("RESEMANTIC_TOP_K_NEIGHBORS", &cfg.Extraction.TopKNeighbors)

	envInt("RESEMANTIC_WORKER_COUNT", &cfg.Worker.Count)
	envInt("RESEMANTIC_WORKER_QUEUE_SIZE", &cfg.Worker.QueueSize)

	envString("RESEMANTIC_SERVER_HOST", &cfg.Server.Host)
	envInt("RESEMANTIC_SERVER_PORT", &cfg.Server.Port)

	dataDir := filepath.Dir(cfg.Archive.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}
	if c.LLM.TimeoutSeconds < 1 {
		errs = append(errs, "LLM timeout_seconds must be positive")
	}

	if c.Embedding.URL == "" {
		errs = append(errs, "Embedding URL is required")
	} else if !isValidURL(c.Embedding.URL) {
		errs = append(errs, "Embedding URL must be a valid URL")
	}
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, "Embedding dimensions must be positive")
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, "Embedding batch_size must be positive")
	}
	if c.Embedding.TimeoutSeconds < 1 {
		errs = append(errs, "Embedding timeout_seconds must be positive")
	}

	if c.Graph.PostgresURL == "" {
		errs = append(errs, "PostgreSQL URL is required")
	} else if !isValidURL(c.Graph.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}
	if c.Archive.Path == "" {
		errs = append(errs, "archive path is required")
	}

	if c.Extraction.Version != "v1" && c.Extraction.Version != "v2" {
		errs = append(errs, "extraction version must be 'v1' or 'v2'")
	}
	if c.Extraction.ContextMaxMessages < 0 {
		errs = append(errs, "context_max_messages must not be negative")
	}
	if c.Extraction.SimilarityThreshold < 0 || c.Extraction.SimilarityThreshold > 1 {
		errs = append(errs, "similarity_threshold must be between 0 and 1")
	}
	if c.Extraction.TopKNeighbors < 1 {
		errs = append(errs, "top_k_neighbors must be at least 1")
	}

	if c.Worker.Count < 1 {
		errs = append(errs, "worker count must be at least 1")
	}
	if c.Worker.QueueSize < 1 {
		errs = append(errs, "worker queue size must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("RESEMANTIC_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	// Check ~/.config/resemantic/config.json first
	configDir := filepath.Join(homeDir, ".config", "resemantic")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	// Check ~/.resemantic/config.json
	altPath := filepath.Join(homeDir, ".resemantic", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
