package capability

import (
	"context"
	"time"
)

// Outcome is the terminal state of one provider call
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeTimedOut Outcome = "timed_out"
)

// ErrorKind is the stable error taxonomy surfaced by the core
type ErrorKind string

const (
	// KindClassificationUnavailable is recovered locally by the keyword fallback
	KindClassificationUnavailable ErrorKind = "CLASSIFICATION_UNAVAILABLE"

	// KindGuardrailDenied marks generated query text rejected before execution
	KindGuardrailDenied ErrorKind = "GUARDRAIL_DENIED"

	// KindProviderFailure is a backend-specific failure reduced to a category
	KindProviderFailure ErrorKind = "PROVIDER_FAILURE"

	// KindProviderTimeout means the call did not finish before its deadline
	KindProviderTimeout ErrorKind = "PROVIDER_TIMEOUT"

	// KindAllProvidersFailed is the terminal state of a route where nothing succeeded
	KindAllProvidersFailed ErrorKind = "ALL_PROVIDERS_FAILED"
)

// ErrorInfo describes why a provider call did not succeed. Category is a
// short generic label and Rule is the guardrail rule name for denials;
// neither carries raw backend text.
type ErrorInfo struct {
	Kind     ErrorKind `json:"kind"`
	Category string    `json:"category,omitempty"`
	Rule     string    `json:"rule,omitempty"`
}

// SourceRef identifies where a piece of content came from
type SourceRef struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Key is the identity used for source deduplication
func (s SourceRef) Key() string {
	return s.Kind + ":" + s.ID
}

// String renders the source as kind:id
func (s SourceRef) String() string {
	return s.Key()
}

// Call is one dispatch of a query to one provider. It is owned by the
// orchestrator for a single request.
type Call struct {
	Tag       Tag
	Query     string
	Context   []string
	StartedAt time.Time
	Deadline  time.Time
}

// Remaining returns the time left before the call deadline
func (c Call) Remaining(now time.Time) time.Duration {
	return c.Deadline.Sub(now)
}

// Result is the outcome of one provider call
type Result struct {
	Tag      Tag            `json:"tag"`
	Outcome  Outcome        `json:"outcome"`
	Content  string         `json:"content,omitempty"`
	Sources  []SourceRef    `json:"sources,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    *ErrorInfo     `json:"error,omitempty"`
	Elapsed  time.Duration  `json:"elapsed"`
}

// Succeeded reports whether the call produced content
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Success builds a successful result
func Success(tag Tag, content string, sources []SourceRef, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{
		Tag:      tag,
		Outcome:  OutcomeSuccess,
		Content:  content,
		Sources:  sources,
		Metadata: metadata,
	}
}

// Failure builds a failed result
func Failure(tag Tag, info ErrorInfo) Result {
	if info.Kind == "" {
		info.Kind = KindProviderFailure
	}
	return Result{
		Tag:      tag,
		Outcome:  OutcomeFailure,
		Metadata: map[string]any{},
		Error:    &info,
	}
}

// TimedOut builds a timed-out result
func TimedOut(tag Tag) Result {
	return Result{
		Tag:      tag,
		Outcome:  OutcomeTimedOut,
		Metadata: map[string]any{},
		Error:    &ErrorInfo{Kind: KindProviderTimeout, Category: "deadline_exceeded"},
	}
}

// Provider executes one capability against its backend. Implementations
// must return before call.Deadline and express every failure in the Result.
type Provider interface {
	Execute(ctx context.Context, call Call) Result
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, call Call) Result

// Execute calls f
func (f ProviderFunc) Execute(ctx context.Context, call Call) Result {
	return f(ctx, call)
}
