package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var hint string
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask for advice on a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("ask: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			emb := newEmbedder(logger)
			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("ask: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			adv, err := newAdvisor(users, emb, st, logger)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			result, err := adv.Answer(ctx, nil, question, hint)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(result.Text)

			if showSources {
				fmt.Println()
				if len(result.Provenance.Sources) > 0 {
					fmt.Println("Sources:")
					for _, src := range result.Provenance.Sources {
						fmt.Printf("  - %s\n", src)
					}
				}
				if len(result.Provenance.MentalModels) > 0 {
					fmt.Printf("Mental models: %s\n", strings.Join(result.Provenance.MentalModels, ", "))
				}
				if result.Provenance.Truncation.Truncated() {
					t := result.Provenance.Truncation
					fmt.Printf("Context trimmed to fit: %d turns, %d events, %d excerpts dropped\n",
						t.DroppedTurns, t.DroppedEvents, t.DroppedChunks)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "topic hint to steer mental model selection, e.g. career or investing")
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the sources and mental models behind the advice")
	return cmd
}
