package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"go.uber.org/zap"
)

// Generic failure categories. Category strings never carry backend text.
const (
	CategoryBackend   = "backend_error"
	CategoryEmpty     = "empty_answer"
	CategoryCanceled  = "canceled"
	CategoryPanic     = "internal_error"
	CategoryGuardrail = "guardrail"
)

// Answer is what a backend produces on success
type Answer struct {
	Content  string
	Sources  []capability.SourceRef
	Metadata map[string]any
}

// Error attaches a generic category to a backend error
type Error struct {
	Category string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Category
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fail wraps err with a category
func Fail(category string, err error) error {
	return &Error{Category: category, Err: err}
}

// Func is the backend-specific body of a provider
type Func func(ctx context.Context, call capability.Call) (*Answer, error)

type outcome struct {
	answer *Answer
	err    error
}

// Run executes fn under the call deadline and folds every error, panic and
// overrun into the returned Result. It returns no later than call.Deadline
// even when fn ignores its context.
func Run(ctx context.Context, call capability.Call, logger *zap.Logger, fn Func) capability.Result {
	start := time.Now()
	if !call.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, call.Deadline)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: Fail(CategoryPanic, fmt.Errorf("panic: %v", r))}
			}
		}()
		answer, err := fn(ctx, call)
		done <- outcome{answer: answer, err: err}
	}()

	var res capability.Result
	select {
	case out := <-done:
		res = toResult(ctx, call.Tag, out)
	case <-ctx.Done():
		res = fromContext(call.Tag, ctx.Err())
	}
	res.Elapsed = time.Since(start)

	logResult(logger, call, res)
	return res
}

func toResult(ctx context.Context, tag capability.Tag, out outcome) capability.Result {
	if out.err == nil {
		if out.answer == nil || strings.TrimSpace(out.answer.Content) == "" {
			return capability.Failure(tag, capability.ErrorInfo{Category: CategoryEmpty})
		}
		return capability.Success(tag, out.answer.Content, out.answer.Sources, out.answer.Metadata)
	}

	var denied *guardrail.DeniedError
	if errors.As(out.err, &denied) {
		return capability.Failure(tag, capability.ErrorInfo{
			Kind:     capability.KindGuardrailDenied,
			Category: CategoryGuardrail,
			Rule:     denied.Rule,
		})
	}

	if errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, context.Canceled) {
		return fromContext(tag, out.err)
	}
	if ctx.Err() != nil {
		return fromContext(tag, ctx.Err())
	}

	var perr *Error
	if errors.As(out.err, &perr) {
		return capability.Failure(tag, capability.ErrorInfo{Category: perr.Category})
	}
	return capability.Failure(tag, capability.ErrorInfo{Category: CategoryBackend})
}

func fromContext(tag capability.Tag, err error) capability.Result {
	if errors.Is(err, context.Canceled) {
		return capability.Failure(tag, capability.ErrorInfo{Category: CategoryCanceled})
	}
	return capability.TimedOut(tag)
}

func logResult(logger *zap.Logger, call capability.Call, res capability.Result) {
	fields := []zap.Field{
		zap.String("capability", string(call.Tag)),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("elapsed", res.Elapsed),
	}
	if res.Error == nil {
		logger.Debug("provider call finished", fields...)
		return
	}
	fields = append(fields,
		zap.String("kind", string(res.Error.Kind)),
		zap.String("category", res.Error.Category),
	)
	if res.Error.Rule != "" {
		fields = append(fields, zap.String("rule", res.Error.Rule))
	}
	logger.Warn("provider call did not succeed", fields...)
}
