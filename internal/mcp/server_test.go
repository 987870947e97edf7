package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sage/internal/advisor"
	"github.com/ajitpratap0/sage/internal/assembler"
	"github.com/ajitpratap0/sage/internal/ingest"
	"github.com/ajitpratap0/sage/internal/llm"
	"github.com/ajitpratap0/sage/internal/mentalmodels"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/persona"
	"github.com/ajitpratap0/sage/internal/retriever"
	"github.com/ajitpratap0/sage/internal/store"
	"github.com/ajitpratap0/sage/internal/userstore"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type fakeCompleter struct {
	text string
}

func (f *fakeCompleter) Complete(_ context.Context, _ *persona.FinalPrompt, _ llm.Options) (string, error) {
	return f.text, nil
}

func (f *fakeCompleter) Name() string { return "fake" }

func newMCPServer(t *testing.T) (*Server, store.KnowledgeStore) {
	t.Helper()
	logger := newTestLogger()

	users, err := userstore.Open(filepath.Join(t.TempDir(), "sage.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })

	st := store.NewMemoryStore(3)
	require.NoError(t, st.Upsert(context.Background(), models.KnowledgeChunk{
		ID:          "c1",
		Source:      "almanack",
		Text:        "Spend each day trying to be a little wiser than you were when you woke up.",
		ContentHash: "hash-c1",
	}, []float32{1, 0, 0}))

	emb := &fakeEmbedder{}
	ret := retriever.New(emb, st, retriever.Options{TopK: 3, DedupOverlap: 0.9}, logger)
	ing := ingest.NewIngestor(emb, st, ingest.ChunkOptions{ChunkSize: 50, Overlap: 10, MinChars: 20}, logger)
	adv := advisor.New(
		users, ret, assembler.New(10000, logger),
		mentalmodels.NewSelector(mentalmodels.DefaultWeights, 0, logger),
		persona.NewComposer(20000, logger),
		&fakeCompleter{text: "Be a little wiser."},
		advisor.Options{Model: "test-model", MaxAttempts: 1, RecentEvents: 5},
		logger,
	)

	return NewServer(adv, ret, ing, st, logger), st
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestMCPAsk(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleAsk(context.Background(), makeReq("ask", map[string]any{
		"question": "Should I invest in this business?",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "Be a little wiser.", out["advice"])
	assert.Equal(t, "fake", out["provider"])
	assert.Equal(t, float64(1), out["attempts"])
}

func TestMCPAskMissingQuestion(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleAsk(context.Background(), makeReq("ask", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "question is required")
}

func TestMCPIngestText(t *testing.T) {
	srv, st := newMCPServer(t)

	result, err := srv.HandleIngestText(context.Background(), makeReq("ingest_text", map[string]any{
		"text":   "The big money is not in the buying and selling, but in the waiting. Patience compounds.",
		"source": "speeches",
		"title":  "On Patience",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Greater(t, out["chunks_written"], float64(0))
	assert.Equal(t, "speeches", out["source"])

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Contains(t, stats.BySource, "speeches")
}

func TestMCPIngestTextMissingArgs(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleIngestText(context.Background(), makeReq("ingest_text", map[string]any{
		"source": "speeches",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleIngestText(context.Background(), makeReq("ingest_text", map[string]any{
		"text": "some text",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPSearchWisdom(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleSearchWisdom(context.Background(), makeReq("search_wisdom", map[string]any{
		"query": "getting wiser",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var out struct {
		Results []models.ScoredChunk `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "c1", out.Results[0].Chunk.ID)
}

func TestMCPSearchWisdomFiltered(t *testing.T) {
	srv, st := newMCPServer(t)

	require.NoError(t, st.Upsert(context.Background(), models.KnowledgeChunk{
		ID:          "c2",
		Source:      "letters",
		Text:        "Never fool yourself, and remember you are the easiest person to fool.",
		ContentHash: "hash-c2",
		Tags:        []string{"self-deception"},
	}, []float32{1, 0, 0}))

	result, err := srv.HandleSearchWisdom(context.Background(), makeReq("search_wisdom", map[string]any{
		"query":  "getting wiser",
		"source": "letters",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var out struct {
		Results []models.ScoredChunk `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "c2", out.Results[0].Chunk.ID)

	result, err = srv.HandleSearchWisdom(context.Background(), makeReq("search_wisdom", map[string]any{
		"query": "getting wiser",
		"tags":  []any{"self-deception"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	out.Results = nil
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "c2", out.Results[0].Chunk.ID)
}

func TestMCPSearchWisdomMissingQuery(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleSearchWisdom(context.Background(), makeReq("search_wisdom", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPKnowledgeStatus(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleKnowledgeStatus(context.Background(), makeReq("knowledge_status", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var stats models.KnowledgeStats
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &stats))
	assert.Equal(t, int64(1), stats.TotalChunks)
}

func TestMCPNilDependencies(t *testing.T) {
	srv := NewServer(nil, nil, nil, nil, newTestLogger())
	ctx := context.Background()

	result, err := srv.HandleAsk(ctx, makeReq("ask", map[string]any{"question": "anything"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleIngestText(ctx, makeReq("ingest_text", map[string]any{"text": "t", "source": "s"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleSearchWisdom(ctx, makeReq("search_wisdom", map[string]any{"query": "q"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.HandleKnowledgeStatus(ctx, makeReq("knowledge_status", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
