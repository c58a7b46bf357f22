package main

import (
	"fmt"

	"github.com/aescanero/dago-node-assistant/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Question answering over team data, documentation and live search",
	Long: `assistant routes a natural-language question to the capabilities that can
answer it (the team database, the indexed product documentation, a live web
search), runs them concurrently and merges their answers.

Configuration is read from environment variables; see internal/config.

Examples:
  assistant seed                       # create and populate the team database
  assistant ingest ./docs --replace    # index product documentation
  assistant ask "How many developers are in the team?"
  assistant check-sql "DELETE FROM team_members"
  assistant worker                     # serve questions from a Redis stream
  assistant history <session-id>       # show a conversation kept by the worker
  assistant feedback add --rating 5 <session-id>`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(checkSQLCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "assistant %s (built %s)\n", Version, BuildTime)
	},
}

// setup loads the configuration and builds the logger shared by every command
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// initLogger initializes the logger
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
