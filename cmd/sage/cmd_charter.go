package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sage/internal/models"
)

func charterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charter",
		Short: "Manage your personal charter of values and goals",
	}
	cmd.AddCommand(charterSetCmd(), charterAddValueCmd(), charterShowCmd())
	return cmd
}

func charterSetCmd() *cobra.Command {
	var (
		values         []string
		nonNegotiables []string
		goals          []string
		antiGoals      []string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace your charter",
		Long: `Replaces the whole charter with the given lists. The order of --value
flags is kept as your priority order, so list the most important first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("charter: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			c := models.Charter{
				Values:         values,
				NonNegotiables: nonNegotiables,
				LongTermGoals:  goals,
				AntiGoals:      antiGoals,
			}
			if c.IsEmpty() {
				return fmt.Errorf("charter: at least one of --value, --non-negotiable, --goal, or --anti-goal is required")
			}

			if err := users.SaveCharter(ctx, c); err != nil {
				return fmt.Errorf("charter: saving: %w", err)
			}

			fmt.Println("Charter saved")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&values, "value", nil, "core value, in priority order (repeatable)")
	cmd.Flags().StringArrayVar(&nonNegotiables, "non-negotiable", nil, "hard constraint the advisor must respect (repeatable)")
	cmd.Flags().StringArrayVar(&goals, "goal", nil, "long-term goal (repeatable)")
	cmd.Flags().StringArrayVar(&antiGoals, "anti-goal", nil, "outcome to avoid (repeatable)")
	return cmd
}

func charterAddValueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-value [value]",
		Short: "Append a core value to the end of your priority list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("charter: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			c, err := users.Charter(ctx)
			if err != nil {
				return fmt.Errorf("charter: loading: %w", err)
			}

			c.Values = append(c.Values, args[0])
			if err := users.SaveCharter(ctx, c); err != nil {
				return fmt.Errorf("charter: saving: %w", err)
			}

			fmt.Printf("Added value #%d: %s\n", len(c.Values), args[0])
			return nil
		},
	}
}

func charterShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your current charter",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("charter: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			c, err := users.Charter(ctx)
			if err != nil {
				return fmt.Errorf("charter: loading: %w", err)
			}
			if c.IsEmpty() {
				fmt.Println("No charter set. Run: sage charter set --value ...")
				return nil
			}

			fmt.Println(c.Summary())
			return nil
		},
	}
}
