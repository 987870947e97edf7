package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sage/internal/advisor"
	"github.com/ajitpratap0/sage/internal/assembler"
	"github.com/ajitpratap0/sage/internal/config"
	"github.com/ajitpratap0/sage/internal/embedder"
	"github.com/ajitpratap0/sage/internal/ingest"
	"github.com/ajitpratap0/sage/internal/llm"
	"github.com/ajitpratap0/sage/internal/mentalmodels"
	"github.com/ajitpratap0/sage/internal/persona"
	"github.com/ajitpratap0/sage/internal/retriever"
	"github.com/ajitpratap0/sage/internal/store"
	"github.com/ajitpratap0/sage/internal/userstore"
)

// personaHeadroom is extra token room on top of the context budget for the
// persona framing, guidelines, and mental model instructions the composer
// adds around the assembled context.
const personaHeadroom = 4000

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "sage",
		Short: "Sage is a Charlie Munger style personal advisor",
		Long:  "Sage answers life and career questions in the voice of Charlie Munger, grounding its advice in a curated wisdom knowledge base, your personal charter, and the mental models framework.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		initCmd(),
		askCmd(),
		chatCmd(),
		reflectCmd(),
		ingestCmd(),
		profileCmd(),
		charterCmd(),
		eventCmd(),
		statusCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEmbedder(logger *slog.Logger) embedder.Embedder {
	if cfg.Embedding.Backend == "ollama" {
		return embedder.NewOllamaEmbedder(
			cfg.Embedding.OllamaBaseURL,
			cfg.Embedding.OllamaModel,
			int(cfg.Embedding.Dimension),
			logger,
		)
	}
	return embedder.NewOpenAIEmbedder(
		cfg.Embedding.OpenAIAPIKey,
		cfg.Embedding.OpenAIModel,
		int(cfg.Embedding.Dimension),
		logger,
	)
}

func newStore(logger *slog.Logger) (store.KnowledgeStore, error) {
	if cfg.Storage.Backend == "memory" {
		return store.NewMemoryStore(int(cfg.Embedding.Dimension)), nil
	}
	return store.NewQdrantStore(
		cfg.Qdrant.Host,
		cfg.Qdrant.GRPCPort,
		cfg.Qdrant.Collection,
		cfg.Embedding.Dimension,
		cfg.Qdrant.UseTLS,
		logger,
	)
}

func newUserStore(logger *slog.Logger) (*userstore.Store, error) {
	return userstore.Open(cfg.Storage.DSN(), logger)
}

func newCompleter(logger *slog.Logger) (llm.Completer, error) {
	apiKey := cfg.Provider.AnthropicAPIKey
	if cfg.Provider.Name == "openai" {
		apiKey = cfg.Provider.OpenAIAPIKey
	}
	return llm.NewCompleter(cfg.Provider.Name, apiKey, logger)
}

func providerModel() string {
	if cfg.Provider.Name == "openai" {
		return cfg.Provider.OpenAIModel
	}
	return cfg.Provider.AnthropicModel
}

func newIngestor(emb embedder.Embedder, st store.KnowledgeStore, logger *slog.Logger) *ingest.Ingestor {
	return ingest.NewIngestor(emb, st, ingest.ChunkOptions{
		ChunkSize: cfg.Knowledge.ChunkSize,
		Overlap:   cfg.Knowledge.ChunkOverlap,
		MinChars:  cfg.Knowledge.MinChunkChars,
	}, logger)
}

func newRetriever(emb embedder.Embedder, st store.KnowledgeStore, logger *slog.Logger) *retriever.Retriever {
	return retriever.New(emb, st, retriever.Options{
		TopK:         cfg.Retrieval.TopK,
		MinScore:     cfg.Retrieval.MinScore,
		DedupOverlap: cfg.Knowledge.DedupOverlap,
	}, logger)
}

// newAdvisor wires the full advice pipeline from configuration.
func newAdvisor(users *userstore.Store, emb embedder.Embedder, st store.KnowledgeStore, logger *slog.Logger) (*advisor.Advisor, error) {
	completer, err := newCompleter(logger)
	if err != nil {
		return nil, err
	}

	ret := newRetriever(emb, st, logger)
	asm := assembler.New(cfg.Context.TokenBudget, logger)
	sel := mentalmodels.NewSelector(mentalmodels.DefaultWeights, mentalmodels.DefaultMaxModels, logger)
	comp := persona.NewComposer(cfg.Context.TokenBudget+personaHeadroom, logger)

	return advisor.New(users, ret, asm, sel, comp, completer, advisor.Options{
		Model:             providerModel(),
		Temperature:       cfg.Provider.Temperature,
		MaxOutputTokens:   cfg.Provider.MaxOutputTokens,
		MaxAttempts:       cfg.Provider.MaxAttempts,
		RecentEvents:      cfg.Context.RecentEvents,
		// Windowed takes a token budget; allow roughly 200 tokens per
		// configured turn.
		SessionTurnBudget: cfg.Context.SessionTurns * 200,
	}, logger), nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
