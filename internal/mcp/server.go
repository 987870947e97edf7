// Package mcp implements the Model Context Protocol server for sage.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/sage/internal/advisor"
	"github.com/ajitpratap0/sage/internal/ingest"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/retriever"
	"github.com/ajitpratap0/sage/internal/store"
)

// Server wraps an MCPServer with sage dependencies.
type Server struct {
	mcp      *mcpserver.MCPServer
	advisor  *advisor.Advisor
	ret      *retriever.Retriever
	ingestor *ingest.Ingestor
	st       store.KnowledgeStore
	logger   *slog.Logger
}

// NewServer creates a new MCP server. Nil dependencies cause the
// corresponding tool calls to return an error response instead of panicking.
func NewServer(
	adv *advisor.Advisor,
	ret *retriever.Retriever,
	ing *ingest.Ingestor,
	st store.KnowledgeStore,
	logger *slog.Logger,
) *Server {
	s := &Server{
		advisor:  adv,
		ret:      ret,
		ingestor: ing,
		st:       st,
		logger:   logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"sage",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildAskTool(), s.handleAsk)
	mcpSrv.AddTool(buildIngestTextTool(), s.handleIngestText)
	mcpSrv.AddTool(buildSearchWisdomTool(), s.handleSearchWisdom)
	mcpSrv.AddTool(buildKnowledgeStatusTool(), s.handleKnowledgeStatus)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleAsk is the exported handler for the "ask" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleAsk(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAsk(ctx, req)
}

// HandleIngestText is the exported handler for the "ingest_text" tool.
func (s *Server) HandleIngestText(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleIngestText(ctx, req)
}

// HandleSearchWisdom is the exported handler for the "search_wisdom" tool.
func (s *Server) HandleSearchWisdom(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearchWisdom(ctx, req)
}

// HandleKnowledgeStatus is the exported handler for the "knowledge_status" tool.
func (s *Server) HandleKnowledgeStatus(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleKnowledgeStatus(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildAskTool() mcpgo.Tool {
	return mcpgo.NewTool("ask",
		mcpgo.WithDescription("Ask for Munger-style advice on a question. Retrieves relevant wisdom, applies mental models, and returns advice with provenance."),
		mcpgo.WithString("question",
			mcpgo.Required(),
			mcpgo.Description("The question or decision to get advice on"),
		),
		mcpgo.WithString("hint",
			mcpgo.Description("Optional topic hint to steer mental model selection, e.g. career or investing"),
		),
	)
}

func buildIngestTextTool() mcpgo.Tool {
	return mcpgo.NewTool("ingest_text",
		mcpgo.WithDescription("Add a passage to the wisdom knowledge base. Chunks, embeds, and indexes the text; already-indexed content is skipped."),
		mcpgo.WithString("text",
			mcpgo.Required(),
			mcpgo.Description("The text to ingest"),
		),
		mcpgo.WithString("source",
			mcpgo.Required(),
			mcpgo.Description("Source identifier, e.g. a book or speech name"),
		),
		mcpgo.WithString("title",
			mcpgo.Description("Optional human-readable title for the passage"),
		),
	)
}

func buildSearchWisdomTool() mcpgo.Tool {
	return mcpgo.NewTool("search_wisdom",
		mcpgo.WithDescription("Semantic search over the wisdom knowledge base. Returns scored chunks without generating advice."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("The query to search for"),
		),
		mcpgo.WithString("source",
			mcpgo.Description("Optional source identifier to restrict the search to"),
		),
		mcpgo.WithArray("tags",
			mcpgo.Description("Optional tags a chunk must carry to match"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildKnowledgeStatusTool() mcpgo.Tool {
	return mcpgo.NewTool("knowledge_status",
		mcpgo.WithDescription("Get knowledge base statistics: total chunks and per-source counts."),
	)
}

// --- tool handlers ---

// handleAsk runs the full advice pipeline for a question.
func (s *Server) handleAsk(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.advisor == nil {
		return mcpgo.NewToolResultError("advisor is unavailable"), nil
	}

	question := req.GetString("question", "")
	if strings.TrimSpace(question) == "" {
		return mcpgo.NewToolResultError("question is required and must not be empty"), nil
	}
	hint := req.GetString("hint", "")

	// Tool calls are stateless: no session, no persisted turns.
	result, err := s.advisor.Answer(ctx, nil, question, hint)
	if err != nil {
		if errors.Is(err, advisor.ErrAdviceUnavailable) {
			return mcpgo.NewToolResultError("advice temporarily unavailable, try again later"), nil
		}
		return mcpgo.NewToolResultErrorf("ask failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: ask answered", "attempts", result.Attempts, "chunks", len(result.Provenance.ChunkIDs))

	out := map[string]any{
		"advice":     result.Text,
		"provider":   result.Provider,
		"model":      result.Model,
		"attempts":   result.Attempts,
		"provenance": result.Provenance,
	}
	return toolResultJSON(out)
}

// handleIngestText chunks, embeds, and indexes a passage.
func (s *Server) handleIngestText(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.ingestor == nil {
		return mcpgo.NewToolResultError("ingestor is unavailable"), nil
	}

	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcpgo.NewToolResultError("text is required and must not be empty"), nil
	}
	source := req.GetString("source", "")
	if strings.TrimSpace(source) == "" {
		return mcpgo.NewToolResultError("source is required and must not be empty"), nil
	}
	title := req.GetString("title", "")

	ids, err := s.ingestor.IngestText(ctx, text, source, title)
	if err != nil {
		return mcpgo.NewToolResultErrorf("ingest failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: ingested text", "source", source, "chunks", len(ids))

	out := map[string]any{
		"chunks_written": len(ids),
		"source":         source,
	}
	return toolResultJSON(out)
}

// handleSearchWisdom performs a raw semantic search and returns scored chunks.
func (s *Server) handleSearchWisdom(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.ret == nil {
		return mcpgo.NewToolResultError("retriever is unavailable"), nil
	}

	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}
	filter := store.SearchFilter{
		Source: req.GetString("source", ""),
		Tags:   req.GetStringSlice("tags", nil),
	}

	results, err := s.ret.RetrieveFiltered(ctx, query, filter)
	if err != nil {
		return mcpgo.NewToolResultErrorf("search failed: %s", err.Error()), nil
	}
	if results == nil {
		results = []models.ScoredChunk{}
	}

	out := map[string]any{
		"results": results,
	}
	return toolResultJSON(out)
}

// handleKnowledgeStatus returns knowledge base statistics.
func (s *Server) handleKnowledgeStatus(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	stats, err := s.st.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
