package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFeedback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := s.FeedbackSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, FeedbackStats{}, stats)

	id, err := s.RecordFeedback(ctx, Feedback{SessionID: "s1", MessageID: "req-1", Rating: 5, Comment: "exact count"})
	require.NoError(t, err)
	assert.Positive(t, id)
	_, err = s.RecordFeedback(ctx, Feedback{SessionID: "s1", Rating: 2})
	require.NoError(t, err)
	_, err = s.RecordFeedback(ctx, Feedback{SessionID: "s2", Rating: 4})
	require.NoError(t, err)

	list, err := s.SessionFeedback(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "req-1", list[0].MessageID)
	assert.Equal(t, "exact count", list[0].Comment)
	assert.Equal(t, 2, list[1].Rating)
	assert.False(t, list[0].CreatedAt.IsZero())

	stats, err = s.FeedbackSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 3.67, stats.AverageRating, 0.001)
}

func TestRecordFeedbackRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fb   Feedback
	}{
		{name: "no session", fb: Feedback{Rating: 3}},
		{name: "rating too low", fb: Feedback{SessionID: "s1", Rating: 0}},
		{name: "rating too high", fb: Feedback{SessionID: "s1", Rating: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RecordFeedback(ctx, tt.fb)
			assert.ErrorIs(t, err, ErrInvalidFeedback)
		})
	}

	stats, err := s.FeedbackSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestFeedbackIsNotWritableFromQueries(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Query(context.Background(), "INSERT INTO feedback (session_id, rating) VALUES ('x', 5)", 0)
	assert.Error(t, err)
}
