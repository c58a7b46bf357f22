package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/provider/sqlquery"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// double returns a fixed result after a delay
func double(delay time.Duration, res capability.Result) capability.Provider {
	return capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return capability.TimedOut(call.Tag)
		}
		out := res
		out.Tag = call.Tag
		return out
	})
}

// hangingProvider ignores its deadline until the test ends
func hangingProvider(t *testing.T) capability.Provider {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		<-release
		return capability.Success(call.Tag, "too late", nil, nil)
	})
}

func ok(content string, sources ...capability.SourceRef) capability.Result {
	return capability.Success("", content, sources, nil)
}

func failed(category string) capability.Result {
	return capability.Failure("", capability.ErrorInfo{Category: category})
}

func newOrchestrator(t *testing.T, providers map[capability.Tag]capability.Provider, synth Synthesizer, cfg Config) *Orchestrator {
	t.Helper()
	o, err := New(providers, synth, cfg, zap.NewNop())
	require.NoError(t, err)
	return o
}

func route(tags ...capability.Tag) capability.Route {
	return capability.NewRoute(tags, 0.9, "test route")
}

func tagsOf(results []capability.Result) []capability.Tag {
	out := make([]capability.Tag, len(results))
	for i, r := range results {
		out[i] = r.Tag
	}
	return out
}

func TestHandleNoneRouteSkipsDispatch(t *testing.T) {
	var calls int32
	p := capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		atomic.AddInt32(&calls, 1)
		return ok("x")
	})
	o := newOrchestrator(t, map[capability.Tag]capability.Provider{capability.LiveSearch: p}, nil, Config{})

	res := o.Handle(context.Background(), Request{ID: "r1", Query: "hi"}, capability.NoneRoute("greeting"))

	assert.Equal(t, NotApplicableMessage, res.FinalMessage)
	assert.Empty(t, res.Sources)
	assert.Empty(t, res.PerProviderResults)
	assert.False(t, res.Degraded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestHandleInvalidRouteIsLogged(t *testing.T) {
	var calls int32
	p := capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		atomic.AddInt32(&calls, 1)
		return ok("x")
	})
	core, logs := observer.New(zapcore.WarnLevel)
	o, err := New(map[capability.Tag]capability.Provider{capability.LiveSearch: p}, nil, Config{}, zap.New(core))
	require.NoError(t, err)

	tests := []struct {
		name  string
		route capability.Route
	}{
		{name: "duplicate tags", route: capability.Route{Capabilities: []capability.Tag{capability.LiveSearch, capability.LiveSearch}, Confidence: 0.9}},
		{name: "confidence out of range", route: capability.Route{Capabilities: []capability.Tag{capability.LiveSearch}, Confidence: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.Len()
			res := o.Handle(context.Background(), Request{ID: "r1", Query: "q"}, tt.route)

			assert.Equal(t, NotApplicableMessage, res.FinalMessage)
			entries := logs.All()[before:]
			require.Len(t, entries, 1)
			assert.Equal(t, "invalid route, skipping dispatch", entries[0].Message)
			assert.Contains(t, entries[0].ContextMap(), "error")
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	o.Handle(context.Background(), Request{ID: "r2", Query: "hi"}, capability.NoneRoute("greeting"))
	assert.Equal(t, 2, logs.Len())
}

func TestCallerCancellationFailsPendingCalls(t *testing.T) {
	hang := hangingProvider(t)
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery: double(0, ok("six")),
		capability.LiveSearch:      hang,
	}
	o := newOrchestrator(t, providers, nil, Config{Budget: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	defer cancel()

	start := time.Now()
	res := o.Handle(ctx, Request{Query: "q"}, route(capability.StructuredQuery, capability.LiveSearch))

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, res.PerProviderResults, 2)
	assert.Equal(t, capability.OutcomeSuccess, res.PerProviderResults[0].Outcome)
	canceled := res.PerProviderResults[1]
	assert.Equal(t, capability.OutcomeFailure, canceled.Outcome)
	require.NotNil(t, canceled.Error)
	assert.Equal(t, capability.KindProviderFailure, canceled.Error.Kind)
	assert.Equal(t, "canceled", canceled.Error.Category)
	assert.True(t, res.Degraded)
}

func TestOrderingFollowsRouteNotCompletion(t *testing.T) {
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery:   double(80*time.Millisecond, ok("6 developers", capability.SourceRef{Kind: "database", ID: "team_members"})),
		capability.DocumentRetrieval: double(0, ok("Inspector is a SAST tool", capability.SourceRef{Kind: "documentation", ID: "inspector.md"})),
	}
	o := newOrchestrator(t, providers, ConcatSynthesizer{}, Config{})

	for i := 0; i < 3; i++ {
		res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.DocumentRetrieval))

		assert.Equal(t, []capability.Tag{capability.StructuredQuery, capability.DocumentRetrieval}, tagsOf(res.PerProviderResults))
		assert.Equal(t, []capability.SourceRef{
			{Kind: "database", ID: "team_members"},
			{Kind: "documentation", ID: "inspector.md"},
		}, res.Sources)
		assert.False(t, res.Degraded)
		assert.Less(t, strings.Index(res.FinalMessage, "6 developers"), strings.Index(res.FinalMessage, "Inspector is a SAST tool"))
	}
}

func TestDispatchIsConcurrent(t *testing.T) {
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery:   double(150*time.Millisecond, ok("a")),
		capability.DocumentRetrieval: double(150*time.Millisecond, ok("b")),
		capability.LiveSearch:        double(150*time.Millisecond, ok("c")),
	}
	o := newOrchestrator(t, providers, nil, Config{})

	start := time.Now()
	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.DocumentRetrieval, capability.LiveSearch))
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Len(t, res.PerProviderResults, 3)
}

func TestPartialFailureDegrades(t *testing.T) {
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery: double(0, failed("query_failed")),
		capability.LiveSearch:      double(0, ok("Kubernetes 1.31 shipped", capability.SourceRef{Kind: "web", ID: "https://kubernetes.io"})),
	}
	synth := &recordingSynth{}
	o := newOrchestrator(t, providers, synth, Config{})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.LiveSearch))

	assert.True(t, res.Degraded)
	assert.True(t, strings.HasPrefix(res.FinalMessage, "Kubernetes 1.31 shipped"))
	assert.Contains(t, res.FinalMessage, "unavailable (database)")
	assert.Equal(t, []capability.SourceRef{{Kind: "web", ID: "https://kubernetes.io"}}, res.Sources)
	assert.Equal(t, capability.OutcomeFailure, res.PerProviderResults[0].Outcome)
	assert.Zero(t, synth.calls, "a single surviving answer is passed through")
}

func TestPartialFailureSynthesizesSuccessfulSubset(t *testing.T) {
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery:   double(0, ok("six")),
		capability.DocumentRetrieval: double(0, failed("no_relevant_documents")),
		capability.LiveSearch:        double(0, ok("news")),
	}
	synth := &recordingSynth{out: "merged"}
	o := newOrchestrator(t, providers, synth, Config{})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.DocumentRetrieval, capability.LiveSearch))

	assert.True(t, res.Degraded)
	assert.True(t, strings.HasPrefix(res.FinalMessage, "merged\n\nNote:"))
	require.Len(t, synth.parts, 2)
	assert.Equal(t, "six", synth.parts[0].Content)
	assert.Equal(t, "news", synth.parts[1].Content)
}

func TestAllFailed(t *testing.T) {
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery:   double(0, failed("query_failed")),
		capability.DocumentRetrieval: double(0, failed("search_failed")),
	}
	o := newOrchestrator(t, providers, nil, Config{})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.DocumentRetrieval))

	assert.Equal(t, AllFailedMessage, res.FinalMessage)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Sources)
}

func TestTimeoutBoundary(t *testing.T) {
	hang := hangingProvider(t)
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery: double(0, ok("six", capability.SourceRef{Kind: "database", ID: "team_members"})),
		capability.LiveSearch:      hang,
	}
	o := newOrchestrator(t, providers, nil, Config{Budget: 100 * time.Millisecond})

	start := time.Now()
	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.LiveSearch))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Len(t, res.PerProviderResults, 2)
	assert.Equal(t, capability.OutcomeSuccess, res.PerProviderResults[0].Outcome)
	assert.Equal(t, capability.OutcomeTimedOut, res.PerProviderResults[1].Outcome)
	assert.Equal(t, capability.KindProviderTimeout, res.PerProviderResults[1].Error.Kind)
	assert.True(t, res.Degraded)
}

func TestSingleRouteTimeout(t *testing.T) {
	hang := hangingProvider(t)
	o := newOrchestrator(t, map[capability.Tag]capability.Provider{capability.LiveSearch: hang}, nil, Config{Budget: 50 * time.Millisecond})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.LiveSearch))

	assert.False(t, res.Degraded)
	assert.Equal(t, "The web search did not respond in time. Please try again.", res.FinalMessage)
}

func TestProviderDeadlineIsCappedByBudget(t *testing.T) {
	var deadline time.Time
	p := capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		deadline = call.Deadline
		return capability.Success(call.Tag, "x", nil, nil)
	})
	o := newOrchestrator(t, map[capability.Tag]capability.Provider{capability.LiveSearch: p}, nil, Config{
		Budget:          time.Second,
		ProviderTimeout: time.Hour,
	})

	start := time.Now()
	o.Handle(context.Background(), Request{Query: "q"}, route(capability.LiveSearch))
	assert.WithinDuration(t, start.Add(time.Second), deadline, 100*time.Millisecond)
}

func TestPanickingProviderIsContained(t *testing.T) {
	p := capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		panic("boom")
	})
	o := newOrchestrator(t, map[capability.Tag]capability.Provider{capability.DocumentRetrieval: p}, nil, Config{})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.DocumentRetrieval))
	assert.Equal(t, capability.OutcomeFailure, res.PerProviderResults[0].Outcome)
	assert.NotContains(t, res.FinalMessage, "boom")
}

func TestMissingProvider(t *testing.T) {
	o := newOrchestrator(t, map[capability.Tag]capability.Provider{}, nil, Config{})
	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.LiveSearch))
	assert.Equal(t, "The web search is not configured, so I can't answer this question.", res.FinalMessage)
}

func TestSynthesisFailureConcatenates(t *testing.T) {
	providers := map[capability.Tag]capability.Provider{
		capability.StructuredQuery:   double(0, ok("six")),
		capability.DocumentRetrieval: double(0, ok("a scanner")),
	}
	synth := &recordingSynth{err: errors.New("model down")}
	o := newOrchestrator(t, providers, synth, Config{})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.StructuredQuery, capability.DocumentRetrieval))
	assert.Equal(t, "From database:\nsix\n\nFrom documentation:\na scanner", res.FinalMessage)
	assert.False(t, res.Degraded)
}

func TestSourcesAreDeduplicated(t *testing.T) {
	shared := capability.SourceRef{Kind: "documentation", ID: "inspector.md"}
	providers := map[capability.Tag]capability.Provider{
		capability.DocumentRetrieval: double(0, ok("a", shared, shared)),
		capability.LiveSearch:        double(0, ok("b", capability.SourceRef{Kind: "web", ID: "u"}, shared)),
	}
	o := newOrchestrator(t, providers, nil, Config{})

	res := o.Handle(context.Background(), Request{Query: "q"}, route(capability.DocumentRetrieval, capability.LiveSearch))
	assert.Equal(t, []capability.SourceRef{shared, {Kind: "web", ID: "u"}}, res.Sources)
}

func TestNewRejectsNonDispatchableProvider(t *testing.T) {
	_, err := New(map[capability.Tag]capability.Provider{capability.None: double(0, ok("x"))}, nil, Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestScenarioCountQuestion(t *testing.T) {
	p := capability.ProviderFunc(func(ctx context.Context, call capability.Call) capability.Result {
		return capability.Success(call.Tag, "There are 6 developers on the team.",
			[]capability.SourceRef{{Kind: "database", ID: "team_members"}},
			map[string]any{"row_count": 1})
	})
	o := newOrchestrator(t, map[capability.Tag]capability.Provider{capability.StructuredQuery: p}, nil, Config{})

	r := capability.NewRoute([]capability.Tag{capability.StructuredQuery}, 0.95, "counting question")
	res := o.Handle(context.Background(), Request{Query: "How many developers are on the team?"}, r)

	assert.Contains(t, res.FinalMessage, "6")
	assert.False(t, res.Degraded)
	assert.Len(t, res.Sources, 1)
	assert.Len(t, res.PerProviderResults, 1)
}

func TestScenarioWriteRequestIsRefused(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "assistant.db"))
	require.NoError(t, err)
	defer store.Close()
	_, err = store.Seed(context.Background())
	require.NoError(t, err)

	model := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "DELETE FROM team_members", nil
	})
	sqlProvider, err := sqlquery.New(model, store, guardrail.NewValidator(guardrail.DefaultPolicy()), 0, zap.NewNop())
	require.NoError(t, err)

	o := newOrchestrator(t, map[capability.Tag]capability.Provider{capability.StructuredQuery: sqlProvider}, nil, Config{})

	r := capability.NewRoute([]capability.Tag{capability.StructuredQuery}, 0.9, "data request")
	res := o.Handle(context.Background(), Request{Query: "Delete all developers"}, r)

	require.Len(t, res.PerProviderResults, 1)
	pr := res.PerProviderResults[0]
	assert.Equal(t, capability.OutcomeFailure, pr.Outcome)
	assert.Equal(t, capability.KindGuardrailDenied, pr.Error.Kind)
	assert.Equal(t, RefusalMessage, res.FinalMessage)
	assert.NotContains(t, res.FinalMessage, "DELETE")
	assert.Empty(t, res.Sources)

	rows, err := store.Query(context.Background(), "SELECT count(*) FROM team_members", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(13), rows.Rows[0][0])
}

func TestLLMSynthesizer(t *testing.T) {
	var prompt string
	s := NewLLMSynthesizer(llm.CompleterFunc(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return " combined ", nil
	}))

	out, err := s.Synthesize(context.Background(), "How many and what?", []Part{
		{Tag: capability.StructuredQuery, Content: "six", Rationale: "needs both"},
		{Tag: capability.DocumentRetrieval, Content: "a scanner"},
	})
	require.NoError(t, err)
	assert.Equal(t, "combined", out)
	assert.Contains(t, prompt, "Answer from database:\nsix")
	assert.Contains(t, prompt, "Why these sources were consulted: needs both")

	_, err = NewLLMSynthesizer(nil).Synthesize(context.Background(), "q", nil)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

type recordingSynth struct {
	out   string
	err   error
	calls int
	parts []Part
}

func (r *recordingSynth) Synthesize(ctx context.Context, query string, parts []Part) (string, error) {
	r.calls++
	r.parts = parts
	return r.out, r.err
}
