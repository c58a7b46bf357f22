/*
Package session stores conversation history per session.

Two Store implementations are provided:

  - RedisStore keeps each session in a Redis list under
    assistant:session:<id>:turns, trimmed to the newest MaxTurns entries and
    expiring after TTL of inactivity
  - MemoryStore keeps the same shape in process, for the CLI and tests

Turns are returned oldest first. RecentTurns with limit <= 0 returns the
whole retained history, and Clear drops it:

	turns, err := store.RecentTurns(ctx, id, 0)
	if err := store.Clear(ctx, id); errors.Is(err, session.ErrNotFound) {
		// nothing stored for id
	}
*/
package session
