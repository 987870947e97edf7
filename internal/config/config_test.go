package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:            "anthropic",
			Temperature:     0.7,
			MaxOutputTokens: 2000,
			MaxAttempts:     3,
		},
		Embedding: EmbeddingConfig{
			Backend:   "openai",
			Dimension: 1536,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			GRPCPort:   6334,
			Collection: "sage_wisdom",
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:     500,
			ChunkOverlap:  50,
			MinChunkChars: 50,
			DedupOverlap:  0.8,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.3,
		},
		Context: ContextConfig{
			TokenBudget:  6000,
			RecentEvents: 10,
			SessionTurns: 10,
		},
		Storage: StorageConfig{
			Backend:    "qdrant",
			DataDir:    "/tmp/sage",
			SQLiteFile: "sage.db",
		},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider.Name = "cohere" },
			wantMsg: "provider.name",
		},
		{
			name:    "zero output tokens",
			mutate:  func(c *Config) { c.Provider.MaxOutputTokens = 0 },
			wantMsg: "max_output_tokens",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Provider.MaxAttempts = 0 },
			wantMsg: "max_attempts",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Provider.Temperature = 2.5 },
			wantMsg: "temperature",
		},
		{
			name:    "unknown embedding backend",
			mutate:  func(c *Config) { c.Embedding.Backend = "cohere" },
			wantMsg: "embedding.backend",
		},
		{
			name:    "zero embedding dimension",
			mutate:  func(c *Config) { c.Embedding.Dimension = 0 },
			wantMsg: "embedding.dimension",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "postgres" },
			wantMsg: "storage.backend",
		},
		{
			name:    "qdrant without host",
			mutate:  func(c *Config) { c.Qdrant.Host = "" },
			wantMsg: "qdrant.host",
		},
		{
			name:    "qdrant without collection",
			mutate:  func(c *Config) { c.Qdrant.Collection = "" },
			wantMsg: "qdrant.collection",
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.Knowledge.ChunkSize = 0 },
			wantMsg: "chunk_size",
		},
		{
			name:    "overlap at least chunk size",
			mutate:  func(c *Config) { c.Knowledge.ChunkOverlap = 500 },
			wantMsg: "chunk_overlap",
		},
		{
			name:    "dedup overlap above one",
			mutate:  func(c *Config) { c.Knowledge.DedupOverlap = 1.5 },
			wantMsg: "dedup_overlap",
		},
		{
			name:    "zero top k",
			mutate:  func(c *Config) { c.Retrieval.TopK = 0 },
			wantMsg: "top_k",
		},
		{
			name:    "min score above one",
			mutate:  func(c *Config) { c.Retrieval.MinScore = 1.2 },
			wantMsg: "min_score",
		},
		{
			name:    "zero token budget",
			mutate:  func(c *Config) { c.Context.TokenBudget = 0 },
			wantMsg: "token_budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMemoryBackendSkipsQdrantChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "memory"
	cfg.Qdrant.Host = ""
	cfg.Qdrant.Collection = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	// Point HOME at an empty dir so no user config file is picked up.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, 3, cfg.Provider.MaxAttempts)
	assert.Equal(t, "openai", cfg.Embedding.Backend)
	assert.Equal(t, uint64(1536), cfg.Embedding.Dimension)
	assert.Equal(t, "qdrant", cfg.Storage.Backend)
	assert.Equal(t, "sage_wisdom", cfg.Qdrant.Collection)
	assert.Equal(t, DefaultChunkSize, cfg.Knowledge.ChunkSize)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultTokenBudget, cfg.Context.TokenBudget)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Empty(t, cfg.API.AuthToken)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SAGE_API_AUTH_TOKEN", "sekrit")
	t.Setenv("SAGE_QDRANT_HOST", "qdrant.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sekrit", cfg.API.AuthToken)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
}

func TestStorageDSN(t *testing.T) {
	s := StorageConfig{DataDir: "/var/lib/sage", SQLiteFile: "sage.db"}
	assert.Equal(t, filepath.Join("/var/lib/sage", "sage.db"), s.DSN())
}

func TestProviderConfigMasksKeys(t *testing.T) {
	p := ProviderConfig{
		Name:            "anthropic",
		AnthropicAPIKey: "sk-ant-REDACTED",
		OpenAIAPIKey:    "short",
	}
	out := p.String()
	assert.NotContains(t, out, "verylongsecretkey")
	assert.Contains(t, out, "sk-a")
	assert.Contains(t, out, "***")
}
