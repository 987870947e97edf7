package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Manage the wisdom knowledge base",
	}

	cmd.AddCommand(
		ingestFileCmd(),
		ingestTextCmd(),
		ingestSeedCmd(),
		ingestRemoveCmd(),
		ingestResetCmd(),
	)
	return cmd
}

func ingestFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file [path...]",
		Short: "Ingest text or markdown files into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			emb := newEmbedder(logger)
			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("ingest: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.EnsureCollection(ctx); err != nil {
				return fmt.Errorf("ingest: ensuring collection: %w", err)
			}

			ing := newIngestor(emb, st, logger)
			count, err := ing.IngestFiles(ctx, args)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("Ingested %d chunks from %d files\n", count, len(args))
			return nil
		},
	}
}

func ingestTextCmd() *cobra.Command {
	var source, title string

	cmd := &cobra.Command{
		Use:   "text [passage]",
		Short: "Ingest a passage of text directly",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if source == "" {
				return fmt.Errorf("ingest: --source is required")
			}

			emb := newEmbedder(logger)
			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("ingest: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.EnsureCollection(ctx); err != nil {
				return fmt.Errorf("ingest: ensuring collection: %w", err)
			}

			ing := newIngestor(emb, st, logger)
			text := strings.Join(args, " ")

			ids, err := ing.IngestText(ctx, text, source, title)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("Ingested %d chunks into source %q\n", len(ids), source)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source identifier, e.g. a book or speech name (required)")
	cmd.Flags().StringVar(&title, "title", "", "human-readable title for the passage")
	return cmd
}

func ingestSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in Munger corpus of quotes, models, and speeches",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			emb := newEmbedder(logger)
			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("seed: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.EnsureCollection(ctx); err != nil {
				return fmt.Errorf("seed: ensuring collection: %w", err)
			}

			ing := newIngestor(emb, st, logger)
			count, err := ing.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			if count == 0 {
				fmt.Println("Seed corpus already indexed, nothing to do")
			} else {
				fmt.Printf("Seeded %d chunks\n", count)
			}
			return nil
		},
	}
}

func ingestRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [source]",
		Short: "Remove every chunk belonging to one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("remove: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteSource(ctx, args[0]); err != nil {
				return fmt.Errorf("remove: %w", err)
			}

			fmt.Printf("Removed source %q\n", args[0])
			return nil
		},
	}
}

func ingestResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the knowledge collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if !yes {
				return fmt.Errorf("reset deletes the entire knowledge base; re-run with --yes to confirm")
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("reset: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.Reset(ctx); err != nil {
				return fmt.Errorf("reset: %w", err)
			}

			fmt.Println("Knowledge base reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
