package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "assistant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	require.NoError(t, s.Ping(ctx))
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Seed(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Query(context.Background(), "SELECT count(*) FROM departments", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Rows[0][0])
}

func TestSeedOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seeded, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = s.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Seed(ctx)
	require.NoError(t, err)

	res, err := s.Query(ctx, "SELECT first_name, position FROM team_members WHERE position LIKE '%Developer%' ORDER BY id", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "position"}, res.Columns)
	assert.Len(t, res.Rows, 6)
	assert.Equal(t, "Alexey", res.Rows[0][0])
	assert.False(t, res.Truncated)

	res, err = s.Query(ctx, "SELECT id FROM team_members", 3)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.True(t, res.Truncated)
}

func TestQueryHandleRefusesWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Seed(ctx)
	require.NoError(t, err)

	_, err = s.Query(ctx, "DELETE FROM team_members", 0)
	assert.Error(t, err)

	res, err := s.Query(ctx, "SELECT count(*) FROM team_members", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(13), res.Rows[0][0])
}

func TestDescribeSchema(t *testing.T) {
	s := openTestStore(t)

	schema, err := s.DescribeSchema(context.Background())
	require.NoError(t, err)
	for _, table := range TeamTables {
		assert.Contains(t, schema, table+"(")
	}
	assert.Contains(t, schema, "id INTEGER PRIMARY KEY")
	assert.NotContains(t, schema, "doc_chunks")
}

func TestDocumentSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocument(ctx, "docs/inspector.md", "Application Inspector", []string{
		"Application Inspector is a static analyzer that proves vulnerabilities with exploits.",
		"Supported languages include Java, Kotlin and Go.",
	}))
	require.NoError(t, s.ReplaceDocument(ctx, "docs/waf.md", "Web Application Firewall", []string{
		"The firewall blocks malicious HTTP requests.",
	}))

	hits, err := s.SearchDocuments(ctx, "What languages does the inspector support?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "docs/inspector.md", hits[0].Path)

	hits, err = s.SearchDocuments(ctx, "firewall", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Web Application Firewall", hits[0].Title)
	assert.Greater(t, hits[0].Score, 0.0)

	docs, chunks, err := s.DocumentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, docs)
	assert.Equal(t, 3, chunks)
}

func TestReplaceDocumentDropsStaleChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocument(ctx, "a.md", "A", []string{"alpha bravo", "charlie"}))
	require.NoError(t, s.ReplaceDocument(ctx, "a.md", "A", []string{"delta"}))

	hits, err := s.SearchDocuments(ctx, "charlie", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.SearchDocuments(ctx, "delta", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	require.NoError(t, s.ClearDocuments(ctx))
	_, chunks, err := s.DocumentStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, chunks)
}

func TestSearchIgnoresQuerySyntax(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceDocument(ctx, "a.md", "A", []string{"near the end"}))

	for _, q := range []string{`"unbalanced`, "NEAR(", "a AND", "*", "?!", ""} {
		_, err := s.SearchDocuments(ctx, q, 5)
		assert.NoError(t, err, q)
	}
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"inspector" OR "languages"`, ftsQuery("What is the Inspector? languages, inspector"))
	assert.Equal(t, "", ftsQuery("what is it?"))
}
