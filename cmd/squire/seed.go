package main

import (
	"fmt"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed-review",
	Short: "Store a team review for the team agent to analyze",
	RunE:  runSeed,
}

var (
	seedMember string
	seedReview string
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedMember, "member", "", "name of the reviewing team member")
	seedCmd.Flags().StringVar(&seedReview, "review", "", "review text to store")
	_ = seedCmd.MarkFlagRequired("review")
}

func runSeed(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open review store: %w", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("prepare review store: %w", err)
	}

	review, err := st.AddTeamReview(ctx, seedReview, seedMember)
	if err != nil {
		return fmt.Errorf("store team review: %w", err)
	}

	pp.Println(review)
	return nil
}
