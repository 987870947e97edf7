package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("status: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("status: fetching statistics: %w", err)
			}

			fmt.Printf("Total chunks: %d\n", stats.TotalChunks)

			if len(stats.BySource) > 0 {
				sources := make([]string, 0, len(stats.BySource))
				for s := range stats.BySource {
					sources = append(sources, s)
				}
				sort.Strings(sources)

				fmt.Println("\nBy source:")
				for _, s := range sources {
					fmt.Printf("  %-30s %d\n", s, stats.BySource[s])
				}
			}

			return nil
		},
	}
}
