package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	maxTurns int
}

// NewMemoryStore creates a store keeping at most maxTurns per session.
// maxTurns <= 0 keeps everything.
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Turn),
		maxTurns: maxTurns,
	}
}

// Append adds a turn to the session
func (m *MemoryStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], turn)
	if m.maxTurns > 0 && len(turns) > m.maxTurns {
		turns = append([]Turn(nil), turns[len(turns)-m.maxTurns:]...)
	}
	m.sessions[sessionID] = turns
	return nil
}

// RecentTurns returns up to limit of the newest turns, oldest first
func (m *MemoryStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.sessions[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear drops the session
func (m *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}
