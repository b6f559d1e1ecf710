package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"peerloop/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiKey     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "peerloop",
	Short: "peerloop - simulated peer community engine for course chats",
	Long: `peerloop orchestrates a coach persona and a cast of scripted peer
personas replying to learner messages in an online course community.

Each incoming message is classified into a conversation phase, routed to
the right persona(s), grounded on the course knowledge base, and scheduled
for delivery on a human-plausible cadence.

Run without arguments to start an interactive demo session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: interactive demo loop
		return runDemo(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "peerloop.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "LLM API key (or set PEERLOOP_API_KEY env)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(standupCmd)
	rootCmd.AddCommand(nudgeCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
