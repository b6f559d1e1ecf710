package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"peerloop/internal/types"
)

// demoCmd runs an interactive chat loop against one learner id. This is the
// long-running mode, so catalog hot reload is enabled here when configured.
var demoCmd = &cobra.Command{
	Use:   "demo [learner-id]",
	Short: "Interactive demo loop (type messages, see scheduled replies)",
	Long: `Starts an interactive session as one learner. Each line you type
runs through the full pipeline; /standup and /nudge fire the proactive
triggers; /quit exits.

With catalog.watch enabled in config, edits to the catalog directory are
picked up live between messages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := bootApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	learnerID := "demo-learner"
	if len(args) > 0 {
		learnerID = args[0]
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "peerloop demo session as %s (/standup, /nudge, /quit)\n", learnerID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/standup":
			if err := demoTrigger(ctx, a, out, learnerID, types.TriggerDailyStandup); err != nil {
				return err
			}
			continue
		case "/nudge":
			if err := demoTrigger(ctx, a, out, learnerID, types.TriggerReEngagement); err != nil {
				return err
			}
			continue
		}

		res, err := a.handle(ctx, learnerID, line, "")
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		renderResult(out, res)
	}
	return scanner.Err()
}

func demoTrigger(ctx context.Context, a *app, out io.Writer, learnerID string, trigger types.Trigger) error {
	res, err := a.handle(ctx, learnerID, "", trigger)
	if err != nil {
		return err
	}
	if len(res.Replies) == 0 {
		renderSuppressed(out, res)
		return nil
	}
	renderResult(out, res)
	return nil
}
