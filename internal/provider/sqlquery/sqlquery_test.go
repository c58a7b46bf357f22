package sqlquery

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedLLM answers generation prompts with sql and answer prompts with answer
func scriptedLLM(sql string, answer string, answerErr error) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "SQL query:") {
			return sql, nil
		}
		return answer, answerErr
	})
}

func seededStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "assistant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Seed(context.Background())
	require.NoError(t, err)
	return s
}

func call(query string) capability.Call {
	now := time.Now()
	return capability.Call{Tag: capability.StructuredQuery, Query: query, StartedAt: now, Deadline: now.Add(5 * time.Second)}
}

func newProvider(t *testing.T, client llm.Completer, backend Backend) *Provider {
	t.Helper()
	p, err := New(client, backend, guardrail.NewValidator(guardrail.DefaultPolicy()), 0, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestExecuteAnswersCount(t *testing.T) {
	client := scriptedLLM(
		"```sql\nSELECT count(*) AS developers FROM team_members WHERE position LIKE '%Developer%';\n```",
		"There are 6 developers on the team.",
		nil,
	)
	p := newProvider(t, client, seededStore(t))

	res := p.Execute(context.Background(), call("How many developers are on the team?"))

	require.True(t, res.Succeeded(), "error: %+v", res.Error)
	assert.Equal(t, "There are 6 developers on the team.", res.Content)
	assert.Equal(t, []capability.SourceRef{{Kind: "database", ID: "team_members"}}, res.Sources)
	assert.Equal(t, 1, res.Metadata["row_count"])
	assert.Equal(t, "SELECT count(*) AS developers FROM team_members WHERE position LIKE '%Developer%'", res.Metadata["sql_query"])
}

func TestExecuteFallsBackToPlainAnswer(t *testing.T) {
	client := scriptedLLM("SELECT count(*) FROM team_members WHERE position LIKE '%Developer%'", "", errors.New("rate limited"))
	p := newProvider(t, client, seededStore(t))

	res := p.Execute(context.Background(), call("How many developers are on the team?"))

	require.True(t, res.Succeeded())
	assert.Equal(t, "Result: 6", res.Content)
}

func TestExecuteDeniesWrites(t *testing.T) {
	store := seededStore(t)
	p := newProvider(t, scriptedLLM("DELETE FROM team_members", "unused", nil), store)

	res := p.Execute(context.Background(), call("Delete all developers"))

	assert.Equal(t, capability.OutcomeFailure, res.Outcome)
	require.NotNil(t, res.Error)
	assert.Equal(t, capability.KindGuardrailDenied, res.Error.Kind)
	assert.Equal(t, guardrail.RuleWriteVerb, res.Error.Rule)
	assert.Empty(t, res.Content)
	assert.NotContains(t, res.Metadata, "sql_query")

	rows, err := store.Query(context.Background(), "SELECT count(*) FROM team_members", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(13), rows.Rows[0][0])
}

func TestExecuteReportsBackendFailureByCategory(t *testing.T) {
	p := newProvider(t, scriptedLLM("SELECT salary FROM payroll", "unused", nil), seededStore(t))

	res := p.Execute(context.Background(), call("What is the payroll?"))

	assert.Equal(t, capability.OutcomeFailure, res.Outcome)
	assert.Equal(t, capability.KindProviderFailure, res.Error.Kind)
	assert.Equal(t, CategoryExecution, res.Error.Category)
}

func TestExecuteGenerationFailure(t *testing.T) {
	client := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream 500")
	})
	p := newProvider(t, client, seededStore(t))

	res := p.Execute(context.Background(), call("How many incidents?"))
	assert.Equal(t, CategoryGeneration, res.Error.Category)
}

func TestExecuteTimesOut(t *testing.T) {
	client := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := newProvider(t, client, seededStore(t))

	c := call("How many incidents?")
	c.Deadline = time.Now().Add(30 * time.Millisecond)
	res := p.Execute(context.Background(), c)

	assert.Equal(t, capability.OutcomeTimedOut, res.Outcome)
	assert.Equal(t, capability.KindProviderTimeout, res.Error.Kind)
}

func TestNewRequiresCollaborators(t *testing.T) {
	v := guardrail.NewValidator(guardrail.DefaultPolicy())
	_, err := New(nil, &sqlite.Store{}, v, 0, zap.NewNop())
	assert.ErrorIs(t, err, llm.ErrNotConfigured)

	_, err = New(scriptedLLM("", "", nil), &sqlite.Store{}, nil, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{reply: "SELECT 1;", want: "SELECT 1;"},
		{reply: "```sql\nSELECT 1\n```", want: "SELECT 1"},
		{reply: "Here you go:\nSELECT name\nFROM products", want: "SELECT name\nFROM products"},
		{reply: "with t as (select 1) select * from t", want: "with t as (select 1) select * from t"},
		{reply: "DELETE FROM team_members", want: "DELETE FROM team_members"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractSQL(tt.reply))
	}
}

func TestTableSources(t *testing.T) {
	refs := tableSources("WITH recent AS (SELECT * FROM incidents) SELECT p.name FROM recent r JOIN products p ON p.id = r.product_id JOIN Incidents i ON 1=1")
	assert.Equal(t, []capability.SourceRef{
		{Kind: "database", ID: "incidents"},
		{Kind: "database", ID: "products"},
	}, refs)
}

func TestPlainAnswer(t *testing.T) {
	assert.Equal(t, "The query returned no results.", PlainAnswer(&sqlite.QueryResult{Columns: []string{"a"}}))

	out := PlainAnswer(&sqlite.QueryResult{
		Columns:   []string{"name", "status"},
		Rows:      [][]any{{"WAF", "active"}, {"TF", nil}},
		Truncated: true,
	})
	assert.Equal(t, "Found 2 row(s) (truncated):\nname | status\nWAF | active\nTF | NULL", out)
}
