package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Chunk is one indexed slice of a document
type Chunk struct {
	ID      string
	Path    string
	Title   string
	Seq     int
	Content string
}

// Hit is a chunk matched by a search, with its bm25 relevance (higher is better)
type Hit struct {
	Chunk
	Score float64
}

// ReplaceDocument removes any chunks previously stored for path and indexes
// the given contents in order.
func (s *Store) ReplaceDocument(ctx context.Context, path, title string, contents []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM doc_chunks WHERE path = ?", path); err != nil {
		return fmt.Errorf("removing old chunks: %w", err)
	}

	for i, content := range contents {
		if strings.TrimSpace(content) == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO doc_chunks (id, path, title, seq, content) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), path, title, i, content)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

// SearchDocuments returns up to limit chunks matching any term of query,
// best match first. A query with no searchable terms yields no hits.
func (s *Store) SearchDocuments(ctx context.Context, query string, limit int) ([]Hit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.path, c.title, c.seq, c.content, bm25(doc_chunks_fts) AS score
		FROM doc_chunks_fts
		JOIN doc_chunks c ON c.rowid = doc_chunks_fts.rowid
		WHERE doc_chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Path, &h.Title, &h.Seq, &h.Content, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		// bm25 is negative, lower is better
		h.Score = -h.Score
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// DocumentStats returns the number of indexed documents and chunks
func (s *Store) DocumentStats(ctx context.Context) (docs, chunks int, err error) {
	row := s.db.QueryRowContext(ctx, "SELECT count(DISTINCT path), count(*) FROM doc_chunks")
	if err := row.Scan(&docs, &chunks); err != nil {
		return 0, 0, fmt.Errorf("counting documents: %w", err)
	}
	return docs, chunks, nil
}

// ClearDocuments drops every indexed chunk
func (s *Store) ClearDocuments(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM doc_chunks"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

// ftsQuery turns free text into an FTS5 expression that ORs quoted terms,
// so user punctuation can never be read as query syntax.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

var stopWords = map[string]bool{
	"the": true, "is": true, "are": true, "was": true, "what": true, "how": true,
	"does": true, "do": true, "of": true, "in": true, "on": true, "to": true,
	"and": true, "or": true, "for": true, "with": true, "about": true, "an": true,
	"it": true, "me": true, "tell": true, "can": true, "which": true, "who": true,
}
