package session

import (
	"context"
	"errors"
	"time"
)

// Roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrNoSession is returned for an empty session id
	ErrNoSession = errors.New("session id is required")

	// ErrNotFound is returned when a session has no stored turns
	ErrNotFound = errors.New("session not found")
)

// Turn is one message in a conversation
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// String renders the turn as "role: content"
func (t Turn) String() string {
	return t.Role + ": " + t.Content
}

// Store persists conversation turns
type Store interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// Clear drops the whole history of a session. It returns ErrNotFound
	// when there was nothing to drop.
	Clear(ctx context.Context, sessionID string) error
}

// Strings renders turns for prompt context
func Strings(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.String()
	}
	return out
}
