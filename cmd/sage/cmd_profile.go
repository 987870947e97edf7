package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/userstore"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your advisor profile",
	}
	cmd.AddCommand(profileSetCmd(), profileShowCmd())
	return cmd
}

func profileSetCmd() *cobra.Command {
	var (
		name       string
		age        int
		stage      string
		industry   string
		occupation string
		risk       string
		horizon    string
		dependents int
		tone       string
		bio        string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("profile: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			// Start from the existing profile so unset flags keep
			// their current values.
			p, err := users.Profile(ctx)
			if err != nil && !errors.Is(err, userstore.ErrNotFound) {
				return fmt.Errorf("profile: loading current profile: %w", err)
			}

			if cmd.Flags().Changed("name") {
				p.Name = name
			}
			if cmd.Flags().Changed("age") {
				p.Age = age
			}
			if cmd.Flags().Changed("stage") {
				p.CareerStage = models.CareerStage(stage)
			}
			if cmd.Flags().Changed("industry") {
				p.Industry = industry
			}
			if cmd.Flags().Changed("occupation") {
				p.Occupation = occupation
			}
			if cmd.Flags().Changed("risk") {
				p.RiskTolerance = models.RiskTolerance(risk)
			}
			if cmd.Flags().Changed("horizon") {
				p.TimeHorizon = models.TimeHorizon(horizon)
			}
			if cmd.Flags().Changed("dependents") {
				p.Dependents = dependents
			}
			if cmd.Flags().Changed("tone") {
				p.Tone = models.AdviceTone(tone)
			}
			if cmd.Flags().Changed("bio") {
				p.Bio = bio
			}

			if p.Name == "" {
				return fmt.Errorf("profile: --name is required for a new profile")
			}
			if p.CareerStage != "" && !p.CareerStage.IsValid() {
				return fmt.Errorf("profile: invalid --stage %q (one of: %v)", p.CareerStage, models.ValidCareerStages)
			}
			if p.RiskTolerance != "" && !p.RiskTolerance.IsValid() {
				return fmt.Errorf("profile: invalid --risk %q (one of: %v)", p.RiskTolerance, models.ValidRiskTolerances)
			}
			if p.TimeHorizon != "" && !p.TimeHorizon.IsValid() {
				return fmt.Errorf("profile: invalid --horizon %q (one of: %v)", p.TimeHorizon, models.ValidTimeHorizons)
			}
			if p.Tone != "" && !p.Tone.IsValid() {
				return fmt.Errorf("profile: invalid --tone %q (one of: blunt, balanced, gentle)", p.Tone)
			}

			if err := users.SaveProfile(ctx, p); err != nil {
				return fmt.Errorf("profile: saving: %w", err)
			}

			fmt.Println("Profile saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "your name")
	cmd.Flags().IntVar(&age, "age", 0, "your age")
	cmd.Flags().StringVar(&stage, "stage", "", "career stage: student, early, mid, senior, executive, retired")
	cmd.Flags().StringVar(&industry, "industry", "", "industry you work in")
	cmd.Flags().StringVar(&occupation, "occupation", "", "what you do")
	cmd.Flags().StringVar(&risk, "risk", "", "risk tolerance: conservative, moderate, aggressive")
	cmd.Flags().StringVar(&horizon, "horizon", "", "planning horizon: short, medium, long")
	cmd.Flags().IntVar(&dependents, "dependents", 0, "number of dependents")
	cmd.Flags().StringVar(&tone, "tone", "", "advice tone: blunt, balanced, gentle")
	cmd.Flags().StringVar(&bio, "bio", "", "short free-form background")
	return cmd
}

func profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("profile: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			p, err := users.Profile(ctx)
			if err != nil {
				if errors.Is(err, userstore.ErrNotFound) {
					fmt.Println("No profile set. Run: sage profile set --name ...")
					return nil
				}
				return fmt.Errorf("profile: loading: %w", err)
			}

			fmt.Println(p.Summary())
			if p.Tone != "" {
				fmt.Printf("Tone: %s\n", p.Tone)
			}
			return nil
		},
	}
}
