package step

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/variables"
)

// Assert checks a context value against a literal, or evaluates a boolean
// expression over the context.
type Assert struct {
	name  string
	key   string
	value string
	expr  string
}

// NewAssert builds an Assert from `assert: {key, value}` or `assert: {expr}`.
// The key form wins when both are present.
func NewAssert(def Definition) (*Assert, error) {
	name, err := Extract(def, "name")
	if err != nil {
		return nil, err
	}
	block, err := extractBlock(def, "assert")
	if err != nil {
		return nil, err
	}

	if _, hasKey := block["key"]; !hasKey {
		if src, ok, err := ExtractOptional(block, "expr"); err != nil {
			return nil, err
		} else if ok {
			return &Assert{name: name, expr: src}, nil
		}
	}

	key, err := Extract(block, "key")
	if err != nil {
		return nil, err
	}
	value, err := Extract(block, "value")
	if err != nil {
		return nil, err
	}
	return &Assert{name: name, key: key, value: value}, nil
}

// Name returns the step name.
func (a *Assert) Name() string { return a.name }

// Execute returns ErrAssertionMismatch when the check fails. Key lookups are
// always strict.
func (a *Assert) Execute(_ context.Context, vars *variables.Context, _ *report.Sink, env *Env) error {
	if a.expr != "" {
		return a.evalExpr(vars, env)
	}

	env.printer().Step(a.name, console.Key.Render(a.key)+"="+console.Value.Render(a.value)+"?")

	stored, err := env.interpolator().Resolve("{{ "+a.key+" }}", vars, true)
	if err != nil {
		return fmt.Errorf("assert %q: %w", a.name, err)
	}
	if stored != a.value {
		return fmt.Errorf("%w: %s != %s", ErrAssertionMismatch, stored, a.value)
	}
	return nil
}

func (a *Assert) evalExpr(vars *variables.Context, env *Env) error {
	env.printer().Step(a.name, console.Key.Render(a.expr)+"?")

	data := vars.Values()
	program, err := expr.Compile(a.expr, expr.Env(data), expr.AsBool())
	if err != nil {
		return fmt.Errorf("assert %q: compile %q: %w", a.name, a.expr, err)
	}
	output, err := expr.Run(program, data)
	if err != nil {
		return fmt.Errorf("assert %q: eval %q: %w", a.name, a.expr, err)
	}
	if ok, _ := output.(bool); !ok {
		return fmt.Errorf("%w: %s", ErrAssertionMismatch, a.expr)
	}
	return nil
}
