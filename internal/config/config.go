package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultChunkSize is the default token count per knowledge chunk.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default token overlap between adjacent chunks.
	DefaultChunkOverlap = 50

	// DefaultTopK is the default number of knowledge chunks retrieved per query.
	DefaultTopK = 5

	// DefaultMinScore is the default similarity floor for retrieved chunks.
	DefaultMinScore = 0.3

	// DefaultTokenBudget is the default prompt context budget in tokens.
	DefaultTokenBudget = 6000
)

// Config holds all configuration for sage.
type Config struct {
	Provider  ProviderConfig  `mapstructure:"provider"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Context   ContextConfig   `mapstructure:"context"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// ProviderConfig holds LLM completion provider settings.
type ProviderConfig struct {
	Name            string  `mapstructure:"name"` // "anthropic" or "openai"
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	AnthropicModel  string  `mapstructure:"anthropic_model"`
	OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
	OpenAIModel     string  `mapstructure:"openai_model"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
	MaxAttempts     int     `mapstructure:"max_attempts"`
}

// String returns a safe representation of ProviderConfig with API keys masked.
func (p ProviderConfig) String() string {
	return fmt.Sprintf("ProviderConfig{Name:%s, AnthropicAPIKey:%s, OpenAIAPIKey:%s}",
		p.Name, maskAPIKey(p.AnthropicAPIKey), maskAPIKey(p.OpenAIAPIKey))
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	Backend       string `mapstructure:"backend"` // "openai" or "ollama"
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OllamaBaseURL string `mapstructure:"ollama_base_url"`
	OllamaModel   string `mapstructure:"ollama_model"`
	Dimension     uint64 `mapstructure:"dimension"`
}

// QdrantConfig holds Qdrant vector database connection settings.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	GRPCPort   int    `mapstructure:"grpc_port"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// KnowledgeConfig holds chunking and ingestion settings.
type KnowledgeConfig struct {
	ChunkSize     int     `mapstructure:"chunk_size"`     // tokens per chunk
	ChunkOverlap  int     `mapstructure:"chunk_overlap"`  // tokens shared between neighbors
	MinChunkChars int     `mapstructure:"min_chunk_chars"`
	DedupOverlap  float64 `mapstructure:"dedup_overlap"` // text overlap ratio treated as duplicate
}

// RetrievalConfig holds knowledge retrieval settings.
type RetrievalConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

// ContextConfig holds prompt context assembly settings.
type ContextConfig struct {
	TokenBudget  int `mapstructure:"token_budget"`
	RecentEvents int `mapstructure:"recent_events"` // events offered to the assembler
	SessionTurns int `mapstructure:"session_turns"` // turns offered to the assembler
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // knowledge store: "qdrant" or "memory"
	DataDir    string `mapstructure:"data_dir"`
	SQLiteFile string `mapstructure:"sqlite_file"`
}

// DSN returns the SQLite path for the user store.
func (s StorageConfig) DSN() string {
	return filepath.Join(s.DataDir, s.SQLiteFile)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("provider.name", "anthropic")
	v.SetDefault("provider.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("provider.openai_model", "gpt-4o")
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.max_output_tokens", 2000)
	v.SetDefault("provider.max_attempts", 3)

	v.SetDefault("embedding.backend", "openai")
	v.SetDefault("embedding.openai_model", "text-embedding-3-small")
	v.SetDefault("embedding.ollama_base_url", "http://localhost:11434")
	v.SetDefault("embedding.ollama_model", "nomic-embed-text")
	v.SetDefault("embedding.dimension", 1536)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.grpc_port", 6334)
	v.SetDefault("qdrant.collection", "sage_wisdom")
	v.SetDefault("qdrant.use_tls", false)

	v.SetDefault("knowledge.chunk_size", DefaultChunkSize)
	v.SetDefault("knowledge.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("knowledge.min_chunk_chars", 50)
	v.SetDefault("knowledge.dedup_overlap", 0.8)

	v.SetDefault("retrieval.top_k", DefaultTopK)
	v.SetDefault("retrieval.min_score", DefaultMinScore)

	v.SetDefault("context.token_budget", DefaultTokenBudget)
	v.SetDefault("context.recent_events", 10)
	v.SetDefault("context.session_turns", 10)

	v.SetDefault("storage.backend", "qdrant")
	v.SetDefault("storage.data_dir", filepath.Join(homeDir(), ".sage"))
	v.SetDefault("storage.sqlite_file", "sage.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".sage"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("SAGE")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("provider.anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("provider.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("qdrant.host", "SAGE_QDRANT_HOST")
	_ = v.BindEnv("qdrant.grpc_port", "SAGE_QDRANT_GRPC_PORT")
	_ = v.BindEnv("api.listen_addr", "SAGE_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "SAGE_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("provider.name must be anthropic or openai, got %q", c.Provider.Name)
	}
	if c.Provider.MaxOutputTokens <= 0 {
		return fmt.Errorf("provider.max_output_tokens must be greater than 0")
	}
	if c.Provider.MaxAttempts <= 0 {
		return fmt.Errorf("provider.max_attempts must be greater than 0")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("provider.temperature must be between 0 and 2")
	}
	switch c.Embedding.Backend {
	case "openai", "ollama":
	default:
		return fmt.Errorf("embedding.backend must be openai or ollama, got %q", c.Embedding.Backend)
	}
	if c.Embedding.Dimension == 0 {
		return fmt.Errorf("embedding.dimension must be greater than 0")
	}
	switch c.Storage.Backend {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("storage.backend must be qdrant or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "qdrant" {
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant.host must not be empty")
		}
		if c.Qdrant.Collection == "" {
			return fmt.Errorf("qdrant.collection must not be empty")
		}
	}
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("knowledge.chunk_size must be greater than 0")
	}
	if c.Knowledge.ChunkOverlap < 0 {
		return fmt.Errorf("knowledge.chunk_overlap must be >= 0")
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap (%d) must be less than knowledge.chunk_size (%d)", c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize)
	}
	if c.Knowledge.DedupOverlap < 0 || c.Knowledge.DedupOverlap > 1 {
		return fmt.Errorf("knowledge.dedup_overlap must be between 0 and 1")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be greater than 0")
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be between 0 and 1")
	}
	if c.Context.TokenBudget <= 0 {
		return fmt.Errorf("context.token_budget must be greater than 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
