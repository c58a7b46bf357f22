package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no model client is available
var ErrNotConfigured = errors.New("llm client not configured")

// Completer turns a prompt into model text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options selects and configures a client
type Options struct {
	Client    string
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// New builds the client named by opts.Client
func New(opts Options, logger *zap.Logger) (Completer, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}

	var (
		c   Completer
		err error
	)
	switch strings.ToLower(opts.Client) {
	case "", "adapters":
		c, err = NewAdaptersClient(opts, logger)
	case "anthropic":
		c, err = NewAnthropicClient(opts)
	default:
		return nil, fmt.Errorf("unknown llm client %q", opts.Client)
	}
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		c = WithTimeout(c, opts.Timeout)
	}
	return c, nil
}

// WithTimeout bounds every completion by d, in addition to any caller deadline
func WithTimeout(c Completer, d time.Duration) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return c.Complete(ctx, prompt)
	})
}

// StripCodeFence removes a surrounding markdown code block, preferring a
// block tagged with lang when present.
func StripCodeFence(text, lang string) string {
	text = strings.TrimSpace(text)

	if lang != "" {
		marker := "```" + lang
		if start := strings.Index(text, marker); start >= 0 {
			body := text[start+len(marker):]
			if end := strings.Index(body, "```"); end >= 0 {
				return strings.TrimSpace(body[:end])
			}
			return strings.TrimSpace(body)
		}
	}

	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		// drop an info string such as "json" or "sql"
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t{") {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end])
		}
		return strings.TrimSpace(body)
	}

	return text
}
