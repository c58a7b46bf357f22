package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	historyClear bool
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show or clear the conversation history of a session",
	Long: `Print the turns the worker kept in Redis for a session, oldest first, or
drop them with --clear.

Examples:
  assistant history 3f1c9a2e-5d8b-4c7a-9e0f-1a2b3c4d5e6f
  assistant history --json 3f1c9a2e-5d8b-4c7a-9e0f-1a2b3c4d5e6f
  assistant history --clear 3f1c9a2e-5d8b-4c7a-9e0f-1a2b3c4d5e6f`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete the session history")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the history as JSON")
}

// History is the stored conversation of one session
type History struct {
	SessionID     string         `json:"session_id"`
	Messages      []session.Turn `json:"messages"`
	TotalMessages int            `json:"total_messages"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	redisClient := redis.NewClient(cfg.RedisOptions())
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := session.NewRedisStore(redisClient, cfg.SessionMaxTurns, cfg.SessionTTL)
	if historyClear {
		if err := clearHistory(ctx, store, args[0], cmd.OutOrStdout()); err != nil {
			return err
		}
		logger.Info("history cleared", zap.String("session_id", args[0]))
		return nil
	}
	return printHistory(ctx, store, args[0], historyJSON, cmd.OutOrStdout())
}

func printHistory(ctx context.Context, store session.Store, sessionID string, asJSON bool, out io.Writer) error {
	turns, err := store.RecentTurns(ctx, sessionID, 0)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(History{SessionID: sessionID, Messages: turns, TotalMessages: len(turns)})
	}

	for _, t := range turns {
		fmt.Fprintf(out, "[%s] %s\n", t.CreatedAt.Format(time.RFC3339), t.String())
	}
	return nil
}

func clearHistory(ctx context.Context, store session.Store, sessionID string, out io.Writer) error {
	err := store.Clear(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "history cleared for session %s\n", sessionID)
	return nil
}
