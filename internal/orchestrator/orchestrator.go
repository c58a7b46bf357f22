package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"go.uber.org/zap"
)

// State is a step of the per-request state machine
type State string

const (
	StateReceived    State = "RECEIVED"
	StateClassified  State = "CLASSIFIED"
	StateSingle      State = "SINGLE_DISPATCH"
	StateMulti       State = "MULTI_DISPATCH"
	StateSkipped     State = "SKIPPED"
	StateAggregating State = "AGGREGATING"
	StateResponded   State = "RESPONDED"
)

// Default budgets
const (
	DefaultBudget           = 30 * time.Second
	DefaultProviderTimeout  = 20 * time.Second
	DefaultSynthesisTimeout = 15 * time.Second
)

// Config bounds the time spent on one request
type Config struct {
	// Budget is the overall dispatch deadline shared by all provider calls
	Budget time.Duration

	// ProviderTimeout caps each call; the effective deadline is the earlier of
	// this and the budget
	ProviderTimeout time.Duration

	// SynthesisTimeout caps the synthesis call
	SynthesisTimeout time.Duration
}

// Request is one query to handle
type Request struct {
	ID      string
	Query   string
	Context []string
}

// Result is the answer assembled for one request
type Result struct {
	RequestID          string                 `json:"request_id,omitempty"`
	FinalMessage       string                 `json:"final_message"`
	PerProviderResults []capability.Result    `json:"per_provider_results"`
	Degraded           bool                   `json:"degraded"`
	Sources            []capability.SourceRef `json:"sources"`
}

// Orchestrator dispatches a routed query to its providers and assembles the answer
type Orchestrator struct {
	providers   map[capability.Tag]capability.Provider
	synthesizer Synthesizer
	config      Config
	logger      *zap.Logger
}

// New creates an orchestrator. providers maps each dispatchable tag to its
// implementation; a tag without a provider fails at dispatch time.
// synthesizer may be nil, in which case contents are concatenated.
func New(providers map[capability.Tag]capability.Provider, synthesizer Synthesizer, config Config, logger *zap.Logger) (*Orchestrator, error) {
	for tag, p := range providers {
		if !tag.Valid() || tag == capability.None {
			return nil, fmt.Errorf("provider registered for non-dispatchable capability %q", tag)
		}
		if p == nil {
			return nil, fmt.Errorf("nil provider for %s", tag)
		}
	}
	if config.Budget <= 0 {
		config.Budget = DefaultBudget
	}
	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = DefaultProviderTimeout
	}
	if config.SynthesisTimeout <= 0 {
		config.SynthesisTimeout = DefaultSynthesisTimeout
	}
	if synthesizer == nil {
		synthesizer = ConcatSynthesizer{}
	}

	return &Orchestrator{
		providers:   providers,
		synthesizer: synthesizer,
		config:      config,
		logger:      logger,
	}, nil
}

// Handle dispatches req along route and always returns a result. It returns
// no later than the budget plus the synthesis timeout.
func (o *Orchestrator) Handle(ctx context.Context, req Request, route capability.Route) *Result {
	log := o.logger.With(zap.String("request_id", req.ID))
	o.transition(log, StateClassified)

	invalid := route.Validate()
	if invalid != nil {
		log.Warn("invalid route, skipping dispatch",
			zap.Error(invalid),
			zap.Any("capabilities", route.Capabilities),
			zap.Float64("confidence", route.Confidence),
		)
	}
	if route.IsNone() || invalid != nil {
		o.transition(log, StateSkipped)
		res := &Result{
			RequestID:          req.ID,
			FinalMessage:       NotApplicableMessage,
			PerProviderResults: []capability.Result{},
			Sources:            []capability.SourceRef{},
		}
		o.transition(log, StateResponded)
		return res
	}

	if route.IsMulti() {
		o.transition(log, StateMulti)
	} else {
		o.transition(log, StateSingle)
	}

	results := o.dispatch(ctx, log, req, route.Capabilities)

	o.transition(log, StateAggregating)
	res := o.aggregate(ctx, log, req, route, results)
	res.RequestID = req.ID

	o.transition(log, StateResponded)
	log.Info("request handled",
		zap.Int("providers", len(results)),
		zap.Bool("degraded", res.Degraded),
		zap.Int("sources", len(res.Sources)),
	)
	return res
}

type slot struct {
	index  int
	result capability.Result
}

// dispatch runs one call per tag concurrently and waits for all of them or
// the budget, whichever comes first. Results keep the order of tags.
func (o *Orchestrator) dispatch(ctx context.Context, log *zap.Logger, req Request, tags []capability.Tag) []capability.Result {
	start := time.Now()
	budgetDeadline := start.Add(o.config.Budget)
	callDeadline := start.Add(o.config.ProviderTimeout)
	if callDeadline.After(budgetDeadline) {
		callDeadline = budgetDeadline
	}

	dctx, cancel := context.WithDeadline(ctx, budgetDeadline)
	defer cancel()

	results := make([]capability.Result, len(tags))
	done := make([]bool, len(tags))
	ch := make(chan slot, len(tags))

	for i, tag := range tags {
		p, ok := o.providers[tag]
		if !ok {
			ch <- slot{index: i, result: capability.Failure(tag, capability.ErrorInfo{Category: "not_configured"})}
			continue
		}

		call := capability.Call{
			Tag:       tag,
			Query:     req.Query,
			Context:   req.Context,
			StartedAt: start,
			Deadline:  callDeadline,
		}
		go func(i int, p capability.Provider, call capability.Call) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("provider panicked",
						zap.String("capability", string(call.Tag)),
						zap.Any("panic", r),
					)
					ch <- slot{index: i, result: capability.Failure(call.Tag, capability.ErrorInfo{Category: "internal_error"})}
				}
			}()
			ch <- slot{index: i, result: p.Execute(dctx, call)}
		}(i, p, call)
	}

	timer := time.NewTimer(time.Until(budgetDeadline))
	defer timer.Stop()

	for received := 0; received < len(tags); {
		select {
		case s := <-ch:
			received++
			results[s.index] = s.result
			done[s.index] = true
		case <-timer.C:
			return o.expire(log, tags, results, done, start, "budget elapsed", capability.TimedOut)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return o.expire(log, tags, results, done, start, "request canceled", canceled)
			}
			return o.expire(log, tags, results, done, start, "request deadline", capability.TimedOut)
		}
	}
	return results
}

func canceled(tag capability.Tag) capability.Result {
	return capability.Failure(tag, capability.ErrorInfo{Category: "canceled"})
}

// expire settles every call still pending with mark
func (o *Orchestrator) expire(log *zap.Logger, tags []capability.Tag, results []capability.Result, done []bool, start time.Time, reason string, mark func(capability.Tag) capability.Result) []capability.Result {
	for i, tag := range tags {
		if done[i] {
			continue
		}
		results[i] = mark(tag)
		results[i].Elapsed = time.Since(start)
		log.Warn("provider result disregarded",
			zap.String("capability", string(tag)),
			zap.String("reason", reason),
		)
	}
	return results
}

func (o *Orchestrator) aggregate(ctx context.Context, log *zap.Logger, req Request, route capability.Route, results []capability.Result) *Result {
	res := &Result{
		PerProviderResults: results,
		Sources:            []capability.SourceRef{},
	}

	var ok []capability.Result
	var failed []capability.Result
	for _, r := range results {
		if r.Succeeded() {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}
	res.Sources = dedupSources(ok)

	if len(results) == 1 {
		if len(ok) == 1 {
			res.FinalMessage = ok[0].Content
		} else {
			res.FinalMessage = FailureMessage(results[0])
		}
		return res
	}

	switch {
	case len(ok) == 0:
		log.Warn("all providers failed", zap.String("kind", string(capability.KindAllProvidersFailed)))
		res.FinalMessage = AllFailedMessage
		res.Degraded = true
	case len(failed) == 0:
		res.FinalMessage = o.synthesize(ctx, log, req, route, ok)
	default:
		body := ok[0].Content
		if len(ok) > 1 {
			body = o.synthesize(ctx, log, req, route, ok)
		}
		res.FinalMessage = body + "\n\n" + UnavailableNote(failed)
		res.Degraded = true
	}
	return res
}

func (o *Orchestrator) synthesize(ctx context.Context, log *zap.Logger, req Request, route capability.Route, ok []capability.Result) string {
	parts := make([]Part, len(ok))
	for i, r := range ok {
		parts[i] = Part{Tag: r.Tag, Content: r.Content, Rationale: route.Rationale}
	}

	sctx, cancel := context.WithTimeout(ctx, o.config.SynthesisTimeout)
	defer cancel()

	msg, err := o.synthesizer.Synthesize(sctx, req.Query, parts)
	if err != nil || msg == "" {
		log.Warn("synthesis failed, concatenating provider answers", zap.Error(err))
		msg, _ = ConcatSynthesizer{}.Synthesize(ctx, req.Query, parts)
	}
	return msg
}

// dedupSources unions the sources of successful results by identity,
// keeping first occurrence order.
func dedupSources(results []capability.Result) []capability.SourceRef {
	seen := make(map[string]bool)
	out := []capability.SourceRef{}
	for _, r := range results {
		for _, s := range r.Sources {
			if seen[s.Key()] {
				continue
			}
			seen[s.Key()] = true
			out = append(out, s)
		}
	}
	return out
}

func (o *Orchestrator) transition(log *zap.Logger, state State) {
	log.Debug("state transition", zap.String("state", string(state)))
}
