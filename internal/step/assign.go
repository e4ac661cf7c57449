package step

import (
	"context"

	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/variables"
)

// Assign stores a literal value in the context.
type Assign struct {
	name  string
	key   string
	value string
}

// NewAssign builds an Assign from `assign: {key, value}`.
func NewAssign(def Definition) (*Assign, error) {
	name, err := Extract(def, "name")
	if err != nil {
		return nil, err
	}
	block, err := extractBlock(def, "assign")
	if err != nil {
		return nil, err
	}
	key, err := Extract(block, "key")
	if err != nil {
		return nil, err
	}
	value, err := Extract(block, "value")
	if err != nil {
		return nil, err
	}
	return &Assign{name: name, key: key, value: value}, nil
}

// Name returns the step name.
func (a *Assign) Name() string { return a.name }

// Execute writes the value under the key, replacing any previous binding.
func (a *Assign) Execute(_ context.Context, vars *variables.Context, _ *report.Sink, env *Env) error {
	env.printer().Step(a.name, console.Key.Render(a.key)+"="+console.Value.Render(a.value))
	vars.Set(a.key, a.value)
	return nil
}
