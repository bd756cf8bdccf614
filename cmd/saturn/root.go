package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Saturn - resilience gateway for LLM providers",
	Long: `Saturn routes chat-completion requests across multiple LLM providers,
surviving provider outages, credential exhaustion, and content-policy
rejections without surfacing them to the caller.

It provides:
  - Ranked provider failover driven by observed resilience
  - Credential pool rotation with health decay and healing
  - Per provider and model circuit breakers
  - Automatic prompt mitigation for content-policy rejections
  - A durable audit ledger and time-series telemetry store`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging() {
	logger, err := logging.New(logging.Config{Level: logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "saturn.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
