package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/userstore"
)

func initCmd() *cobra.Command {
	var (
		name  string
		stage string
		tone  string
		seed  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up sage: create your profile and optionally seed the knowledge base",
		Long: `Creates the local data directory and your profile. With --seed it also
loads the built-in Munger corpus so retrieval works out of the box.
Refine the profile later with "sage profile set" and record your values
with "sage charter set".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if name == "" {
				return fmt.Errorf("init: --name is required")
			}
			if stage != "" && !models.CareerStage(stage).IsValid() {
				return fmt.Errorf("init: invalid --stage %q (one of: %v)", stage, models.ValidCareerStages)
			}
			if tone != "" && !models.AdviceTone(tone).IsValid() {
				return fmt.Errorf("init: invalid --tone %q (one of: blunt, balanced, gentle)", tone)
			}

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("init: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			if _, err := users.Profile(ctx); err == nil {
				return fmt.Errorf("init: a profile already exists; use \"sage profile set\" to change it")
			} else if !errors.Is(err, userstore.ErrNotFound) {
				return fmt.Errorf("init: checking for existing profile: %w", err)
			}

			p := models.Profile{
				Name:        name,
				CareerStage: models.CareerStage(stage),
				Tone:        models.AdviceTone(tone),
			}
			if err := users.SaveProfile(ctx, p); err != nil {
				return fmt.Errorf("init: saving profile: %w", err)
			}
			fmt.Printf("Profile created for %s\n", name)

			if seed {
				emb := newEmbedder(logger)
				st, err := newStore(logger)
				if err != nil {
					return fmt.Errorf("init: connecting to store: %w", err)
				}
				defer func() { _ = st.Close() }()

				if err := st.EnsureCollection(ctx); err != nil {
					return fmt.Errorf("init: ensuring collection: %w", err)
				}

				count, err := newIngestor(emb, st, logger).Seed(ctx)
				if err != nil {
					return fmt.Errorf("init: seeding: %w", err)
				}
				fmt.Printf("Seeded %d chunks of wisdom\n", count)
			}

			fmt.Println(`Next: record your values with "sage charter set --value ..." and ask away.`)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "your name (required)")
	cmd.Flags().StringVar(&stage, "stage", "", "career stage: student, early, mid, senior, executive, retired")
	cmd.Flags().StringVar(&tone, "tone", "", "advice tone: blunt, balanced, gentle")
	cmd.Flags().BoolVar(&seed, "seed", false, "also load the built-in wisdom corpus")
	return cmd
}
