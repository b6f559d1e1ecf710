package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"peerloop/internal/types"
)

// =============================================================================
// PROACTIVE NUDGE COMMANDS
// =============================================================================
//
// Standups and re-engagement nudges are caller-initiated: an external
// scheduler (cron, a course platform hook) decides WHEN, peerloop decides
// WHAT. Both are idempotent inside the dedupe window, so a retried cron job
// cannot double-message a learner.

// standupCmd posts the coach's morning standup prompt.
var standupCmd = &cobra.Command{
	Use:   "standup <learner-id>",
	Short: "Post the coach's daily standup prompt for a learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrigger(cmd, args[0], types.TriggerDailyStandup)
	},
}

// nudgeCmd sends a re-engagement check-in to a quiet learner.
var nudgeCmd = &cobra.Command{
	Use:   "nudge <learner-id>",
	Short: "Send a re-engagement check-in to an inactive learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrigger(cmd, args[0], types.TriggerReEngagement)
	},
}

func runTrigger(cmd *cobra.Command, learnerID string, trigger types.Trigger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := bootApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.handle(ctx, learnerID, "", trigger)
	if err != nil {
		return err
	}

	if len(res.Replies) == 0 {
		renderSuppressed(cmd.OutOrStdout(), res)
		return nil
	}
	renderResult(cmd.OutOrStdout(), res)
	return nil
}
