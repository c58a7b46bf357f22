package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys
const KeyPrefix = "assistant:session:"

// RedisStore keeps each session as a capped Redis list
type RedisStore struct {
	client   redis.UniversalClient
	maxTurns int
	ttl      time.Duration
}

// NewRedisStore creates a Redis-backed store. maxTurns <= 0 disables
// trimming and ttl <= 0 disables expiry.
func NewRedisStore(client redis.UniversalClient, maxTurns int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

// Key returns the list key for a session
func Key(sessionID string) string {
	return KeyPrefix + sessionID + ":turns"
}

// Append pushes a turn, trims the list and refreshes the expiry in one transaction
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return ErrNoSession
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := Key(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit of the newest turns, oldest first
func (s *RedisStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	items, err := s.client.LRange(ctx, Key(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear deletes the session list
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}

	n, err := s.client.Del(ctx, Key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
