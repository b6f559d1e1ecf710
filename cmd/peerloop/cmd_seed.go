package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"peerloop/internal/config"
	"peerloop/internal/store"
)

// seedCmd populates the database with demo data.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo learner and conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SeedDemo(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (try: peerloop chat demo-learner \"hello!\")\n", st.Path())
		return nil
	},
}
