package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

// raymond keeps helpers in a process-wide registry and panics on duplicate
// registration, so helpers are installed once regardless of how many engines exist.
var registerOnce sync.Once

// blankRuns matches the empty lines left behind by block helpers
var blankRuns = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+\n`)

// Engine renders Handlebars prompt templates. Compiled templates are cached
// by their source text, since prompts are a small fixed set.
type Engine struct {
	compiled map[string]*raymond.Template
	mu       sync.RWMutex
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	registerOnce.Do(registerHelpers)

	return &Engine{
		compiled: make(map[string]*raymond.Template),
	}
}

// Render renders a prompt with the given data. The output is tidied: runs of
// blank lines collapse to one and surrounding whitespace is trimmed.
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	tmpl, err := e.compile(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}

	result, err := tmpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return tidy(result), nil
}

// compile returns the cached template for templateStr, parsing it on first use
func (e *Engine) compile(templateStr string) (*raymond.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.compiled[templateStr]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := raymond.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	e.mu.Lock()
	e.compiled[templateStr] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

// ValidateTemplate parses a template and caches it for later renders
func (e *Engine) ValidateTemplate(templateStr string) error {
	_, err := e.compile(templateStr)
	return err
}

func tidy(s string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n"))
}

// registerHelpers installs the helpers used by prompts
func registerHelpers() {
	// default returns the fallback when the value is empty
	raymond.RegisterHelper("default", func(value interface{}, defaultValue interface{}) interface{} {
		if value == nil || value == "" {
			return defaultValue
		}
		return value
	})

	// inc turns a zero-based @index into a one-based list number
	raymond.RegisterHelper("inc", func(i int) int {
		return i + 1
	})

	// truncate cuts a string to at most n runes, appending an ellipsis
	raymond.RegisterHelper("truncate", func(str string, n int) string {
		runes := []rune(str)
		if n <= 0 || len(runes) <= n {
			return str
		}
		return string(runes[:n]) + "..."
	})

	// join renders a list of values, e.g. the capabilities of a route
	raymond.RegisterHelper("join", func(arr interface{}, sep string) string {
		switch v := arr.(type) {
		case []string:
			return strings.Join(v, sep)
		case []interface{}:
			strs := make([]string, len(v))
			for i, item := range v {
				strs[i] = fmt.Sprint(item)
			}
			return strings.Join(strs, sep)
		default:
			return fmt.Sprint(arr)
		}
	})
}
