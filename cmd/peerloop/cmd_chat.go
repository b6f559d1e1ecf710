package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// chatCmd handles a single learner message end to end.
var chatCmd = &cobra.Command{
	Use:   "chat <learner-id> <message...>",
	Short: "Send one learner message and print the scheduled replies",
	Long: `Runs one message through the full orchestration pipeline: phase
classification, responder selection, knowledge grounding, generation, and
delivery scheduling. The message and the replies are appended to the
learner's conversation log.

Example:
  peerloop chat demo-learner "how do I submit the module 2 worksheet?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := bootApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	learnerID := args[0]
	message := strings.Join(args[1:], " ")

	res, err := a.handle(ctx, learnerID, message, "")
	if err != nil {
		return err
	}

	renderResult(cmd.OutOrStdout(), res)
	return nil
}
