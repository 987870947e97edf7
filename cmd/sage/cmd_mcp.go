package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	sagemcp "github.com/ajitpratap0/sage/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  ask              - get Munger-style advice with provenance
  ingest_text      - add a passage to the wisdom knowledge base
  search_wisdom    - raw semantic search with scores
  knowledge_status - knowledge base statistics

If Qdrant or the embedding service are unavailable at startup the server
still starts; individual tool calls will return MCP error responses on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("mcp: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			emb := newEmbedder(logger)

			st, storeErr := newStore(logger)
			if storeErr != nil {
				// Log to stderr and continue with a nil store.
				// Tool calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to connect to store; tool calls requiring storage will fail",
					"error", storeErr)
			}

			var srv *sagemcp.Server
			if storeErr != nil {
				srv = sagemcp.NewServer(nil, nil, nil, nil, logger)
			} else {
				adv, advErr := newAdvisor(users, emb, st, logger)
				if advErr != nil {
					return fmt.Errorf("mcp: %w", advErr)
				}
				srv = sagemcp.NewServer(adv, newRetriever(emb, st, logger), newIngestor(emb, st, logger), st, logger)
			}

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: sage MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
