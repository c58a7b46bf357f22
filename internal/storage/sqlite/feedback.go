package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFeedback is returned for feedback without a session or with a
// rating outside 1..5
var ErrInvalidFeedback = errors.New("invalid feedback")

// Feedback is a user rating of an answer
type Feedback struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackStats summarizes the recorded feedback
type FeedbackStats struct {
	Total         int     `json:"total_feedback"`
	AverageRating float64 `json:"average_rating"`
}

// RecordFeedback stores f and returns its id
func (s *Store) RecordFeedback(ctx context.Context, f Feedback) (int64, error) {
	if strings.TrimSpace(f.SessionID) == "" {
		return 0, fmt.Errorf("%w: session id is required", ErrInvalidFeedback)
	}
	if f.Rating < 1 || f.Rating > 5 {
		return 0, fmt.Errorf("%w: rating %d is not between 1 and 5", ErrInvalidFeedback, f.Rating)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback (session_id, message_id, rating, comment) VALUES (?, ?, ?, ?)",
		f.SessionID, f.MessageID, f.Rating, f.Comment,
	)
	if err != nil {
		return 0, fmt.Errorf("recording feedback: %w", err)
	}
	return res.LastInsertId()
}

// SessionFeedback returns the feedback left for a session, oldest first
func (s *Store) SessionFeedback(ctx context.Context, sessionID string) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, message_id, rating, comment, created_at FROM feedback WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.SessionID, &f.MessageID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FeedbackSummary returns the feedback count and the mean rating rounded to
// two decimals
func (s *Store) FeedbackSummary(ctx context.Context) (FeedbackStats, error) {
	var stats FeedbackStats
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(ROUND(AVG(rating), 2), 0) FROM feedback")
	if err := row.Scan(&stats.Total, &stats.AverageRating); err != nil {
		return FeedbackStats{}, fmt.Errorf("summarizing feedback: %w", err)
	}
	return stats, nil
}
