package sqlquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/eval/template"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/provider"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"go.uber.org/zap"
)

// Failure categories
const (
	CategorySchema     = "schema_unavailable"
	CategoryGeneration = "generation_failed"
	CategoryExecution  = "query_failed"
)

// DefaultMaxRows caps the rows read from one generated query
const DefaultMaxRows = 100

// promptRows caps the rows rendered into the answer prompt
const promptRows = 20

// Backend is the relational store generated SQL runs against
type Backend interface {
	DescribeSchema(ctx context.Context) (string, error)
	Query(ctx context.Context, query string, maxRows int) (*sqlite.QueryResult, error)
}

// Provider answers STRUCTURED_QUERY calls by generating SQL, validating it
// and summarizing the rows.
type Provider struct {
	llmClient      llm.Completer
	backend        Backend
	validator      *guardrail.Validator
	templateEngine *template.Engine
	maxRows        int
	logger         *zap.Logger
}

// New creates the provider. Every generated statement passes through validator
// before it reaches backend.
func New(llmClient llm.Completer, backend Backend, validator *guardrail.Validator, maxRows int, logger *zap.Logger) (*Provider, error) {
	if llmClient == nil {
		return nil, llm.ErrNotConfigured
	}
	if backend == nil {
		return nil, errors.New("sql backend is required")
	}
	if validator == nil {
		return nil, errors.New("guardrail validator is required")
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Provider{
		llmClient:      llmClient,
		backend:        backend,
		validator:      validator,
		templateEngine: template.NewEngine(),
		maxRows:        maxRows,
		logger:         logger,
	}, nil
}

// Execute implements capability.Provider
func (p *Provider) Execute(ctx context.Context, call capability.Call) capability.Result {
	return provider.Run(ctx, call, p.logger, p.answer)
}

func (p *Provider) answer(ctx context.Context, call capability.Call) (*provider.Answer, error) {
	schema, err := p.backend.DescribeSchema(ctx)
	if err != nil {
		return nil, provider.Fail(CategorySchema, err)
	}

	prompt, err := p.templateEngine.Render(generationPrompt, map[string]interface{}{
		"schema":   schema,
		"question": call.Query,
		"context":  call.Context,
	})
	if err != nil {
		return nil, provider.Fail(CategoryGeneration, err)
	}

	generated, err := p.llmClient.Complete(ctx, prompt)
	if err != nil {
		return nil, provider.Fail(CategoryGeneration, err)
	}
	candidate := ExtractSQL(generated)

	verdict := p.validator.Validate(candidate)
	if !verdict.Allowed {
		p.logger.Warn("generated SQL denied",
			zap.String("rule", verdict.MatchedRule),
			zap.String("token", verdict.Token),
		)
		return nil, &guardrail.DeniedError{Rule: verdict.MatchedRule, Token: verdict.Token}
	}

	p.logger.Debug("executing generated SQL", zap.String("sql", verdict.NormalizedQuery))

	rows, err := p.backend.Query(ctx, verdict.NormalizedQuery, p.maxRows)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, provider.Fail(CategoryExecution, err)
	}

	content, err := p.summarize(ctx, call.Query, rows)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("answer generation failed, using plain rendering", zap.Error(err))
		content = PlainAnswer(rows)
	}

	return &provider.Answer{
		Content: content,
		Sources: tableSources(verdict.NormalizedQuery),
		Metadata: map[string]any{
			"row_count": len(rows.Rows),
			"truncated": rows.Truncated,
			"sql_query": verdict.NormalizedQuery,
		},
	}, nil
}

func (p *Provider) summarize(ctx context.Context, question string, rows *sqlite.QueryResult) (string, error) {
	prompt, err := p.templateEngine.Render(answerPrompt, map[string]interface{}{
		"question":  question,
		"columns":   strings.Join(rows.Columns, " | "),
		"rows":      renderRows(rows, promptRows),
		"row_count": len(rows.Rows),
		"truncated": rows.Truncated,
	})
	if err != nil {
		return "", err
	}

	out, err := p.llmClient.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty answer")
	}
	return out, nil
}

// ExtractSQL pulls the statement out of a model reply: a fenced block when
// present, otherwise the reply from its first SELECT or WITH line.
func ExtractSQL(reply string) string {
	text := llm.StripCodeFence(reply, "sql")
	text = strings.TrimSpace(text)

	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		u := strings.ToUpper(strings.TrimSpace(line))
		if strings.HasPrefix(u, "SELECT") || strings.HasPrefix(u, "WITH") {
			return strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
	}
	return text
}

// PlainAnswer renders rows without a model
func PlainAnswer(rows *sqlite.QueryResult) string {
	if len(rows.Rows) == 0 {
		return "The query returned no results."
	}
	if len(rows.Rows) == 1 && len(rows.Columns) == 1 {
		return fmt.Sprintf("Result: %v", rows.Rows[0][0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d row(s)", len(rows.Rows))
	if rows.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString(":\n")
	b.WriteString(strings.Join(rows.Columns, " | "))
	b.WriteByte('\n')
	b.WriteString(renderRows(rows, promptRows))
	return strings.TrimRight(b.String(), "\n")
}

func renderRows(rows *sqlite.QueryResult, limit int) string {
	var b strings.Builder
	for i, row := range rows.Rows {
		if i >= limit {
			fmt.Fprintf(&b, "... %d more row(s)\n", len(rows.Rows)-limit)
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = "NULL"
				continue
			}
			cells[j] = fmt.Sprint(v)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}

var tableRef = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+["\x60\[]?([A-Za-z_][A-Za-z0-9_]*)`)

// tableSources names each table the query reads, in order of appearance.
// CTE names are dropped.
func tableSources(query string) []capability.SourceRef {
	ctes := map[string]bool{}
	for _, m := range cteName.FindAllStringSubmatch(query, -1) {
		ctes[strings.ToLower(m[1])] = true
	}

	seen := map[string]bool{}
	var refs []capability.SourceRef
	for _, m := range tableRef.FindAllStringSubmatch(query, -1) {
		name := strings.ToLower(m[1])
		if ctes[name] || seen[name] || strings.EqualFold(name, "SELECT") {
			continue
		}
		seen[name] = true
		refs = append(refs, capability.SourceRef{Kind: "database", ID: name})
	}
	return refs
}

var cteName = regexp.MustCompile(`(?i)(?:\bWITH|,)\s+([A-Za-z_][A-Za-z0-9_]*)\s+AS\s*\(`)
