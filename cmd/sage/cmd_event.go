package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sage/internal/models"
)

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Record and review life events",
	}
	cmd.AddCommand(eventAddCmd(), eventListCmd(), eventDeleteCmd())
	return cmd
}

func eventAddCmd() *cobra.Command {
	var (
		description  string
		category     string
		significance int
		lessons      string
		when         string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Record a life event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("event: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			e := models.LifeEvent{
				Title:        args[0],
				Description:  description,
				Category:     models.EventCategory(category),
				Significance: significance,
				Lessons:      lessons,
			}

			if when != "" {
				occurred, parseErr := time.Parse("2006-01-02", when)
				if parseErr != nil {
					return fmt.Errorf("event: --when must be YYYY-MM-DD: %w", parseErr)
				}
				e.OccurredAt = occurred
			}

			id, err := users.AddEvent(ctx, e)
			if err != nil {
				return fmt.Errorf("event: %w", err)
			}

			fmt.Printf("Recorded event %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "what happened")
	cmd.Flags().StringVar(&category, "category", "", fmt.Sprintf("one of: %v", models.ValidEventCategories))
	cmd.Flags().IntVar(&significance, "significance", 5, "how much this matters, 1-10")
	cmd.Flags().StringVar(&lessons, "lessons", "", "what you learned from it")
	cmd.Flags().StringVar(&when, "when", "", "date it happened (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func eventListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent life events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("event: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			events, err := users.RecentEvents(ctx, limit)
			if err != nil {
				return fmt.Errorf("event: listing: %w", err)
			}
			if len(events) == 0 {
				fmt.Println("No events recorded")
				return nil
			}

			for _, e := range events {
				fmt.Printf("%s  %s\n", e.ID, truncate(e.Summary(), 100))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events to show")
	return cmd
}

func eventDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a life event by ID",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("event: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			if err := users.DeleteEvent(ctx, args[0]); err != nil {
				return fmt.Errorf("event: deleting: %w", err)
			}

			fmt.Println("Event deleted")
			return nil
		},
	}
}
