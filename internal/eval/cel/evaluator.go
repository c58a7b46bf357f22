package cel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Evaluator evaluates CEL routing conditions against a query
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new CEL evaluator
func NewEvaluator() *Evaluator {
	// The only variable is the query being routed
	env, err := cel.NewEnv(
		cel.Variable("query", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create CEL environment: %v", err))
	}

	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}
}

// QueryVars builds the evaluation variables for a query and its recent context
func QueryVars(text string, recent []string) map[string]interface{} {
	turns := make([]interface{}, 0, len(recent))
	for _, t := range recent {
		turns = append(turns, t)
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"text":    text,
			"lower":   strings.ToLower(text),
			"words":   int64(len(strings.Fields(text))),
			"context": turns,
		},
	}
}

// Evaluate evaluates a CEL expression with the given variables
func (e *Evaluator) Evaluate(ctx context.Context, expression string, vars map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	program, err := e.getProgram(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	out, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	return out.Value(), nil
}

// Matches evaluates a boolean condition. Non-boolean results are an error.
func (e *Evaluator) Matches(ctx context.Context, expression string, vars map[string]interface{}) (bool, error) {
	result, err := e.Evaluate(ctx, expression, vars)
	if err != nil {
		return false, err
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, expected bool", result)
	}
	return matched, nil
}

// ruleCostLimit bounds the work one operator rule may do per query
const ruleCostLimit = 100000

// getProgram returns the cached program for expression, compiling it on first use
func (e *Evaluator) getProgram(expression string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("parse error: %w", issues.Err())
	}

	program, err := e.env.Program(ast,
		cel.CostLimit(ruleCostLimit),
		cel.InterruptCheckFrequency(100),
	)
	if err != nil {
		return nil, fmt.Errorf("program generation error: %w", err)
	}

	e.mu.Lock()
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}

// ValidateExpression compiles an expression and checks that it can yield a boolean
func (e *Evaluator) ValidateExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}

	if out := ast.OutputType(); out != nil {
		switch out.String() {
		case "bool", "dyn":
		default:
			return fmt.Errorf("expression must return bool, got %s", out.String())
		}
	}

	_, err := e.getProgram(expression)
	return err
}
