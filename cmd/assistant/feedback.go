package main

import (
	"encoding/json"
	"fmt"

	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	feedbackMessage string
	feedbackComment string
	feedbackRating  int
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and summarize ratings of answers",
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add <session-id>",
	Short: "Rate an answer from 1 to 5",
	Long: `Store a rating for a session in DATABASE_PATH. --message names the answer
being rated; use the request_id of the published answer.

Examples:
  assistant feedback add --rating 5 3f1c9a2e-5d8b-4c7a-9e0f-1a2b3c4d5e6f
  assistant feedback add --rating 2 --message req-42 --comment "missed the open incidents" s1`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedbackAdd,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of ratings and their average",
	Args:  cobra.NoArgs,
	RunE:  runFeedbackStats,
}

func init() {
	feedbackAddCmd.Flags().IntVar(&feedbackRating, "rating", 0, "Rating from 1 to 5")
	feedbackAddCmd.Flags().StringVar(&feedbackMessage, "message", "", "Id of the rated answer")
	feedbackAddCmd.Flags().StringVar(&feedbackComment, "comment", "", "Free-form comment")
	_ = feedbackAddCmd.MarkFlagRequired("rating")

	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackStatsCmd)
}

func runFeedbackAdd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.RecordFeedback(cmd.Context(), sqlite.Feedback{
		SessionID: args[0],
		MessageID: feedbackMessage,
		Rating:    feedbackRating,
		Comment:   feedbackComment,
	})
	if err != nil {
		return err
	}

	logger.Info("feedback received",
		zap.String("session_id", args[0]),
		zap.Int("rating", feedbackRating),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "feedback %d recorded\n", id)
	return nil
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.FeedbackSummary(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
