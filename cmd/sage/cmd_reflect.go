package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func reflectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Run a periodic review of your recent events against your charter",
		Long: `Asks the advisor to step back and review your recent life events against
your stated values and long-term goals, pointing out drift, patterns, and
standard misjudgments worth guarding against. Requires a configured profile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("reflect: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			emb := newEmbedder(logger)
			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("reflect: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			adv, err := newAdvisor(users, emb, st, logger)
			if err != nil {
				return fmt.Errorf("reflect: %w", err)
			}

			result, err := adv.Reflect(ctx)
			if err != nil {
				return fmt.Errorf("reflect: %w", err)
			}

			fmt.Println(result.Text)
			return nil
		},
	}
}
