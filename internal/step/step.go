// Package step defines the executable unit of a benchmark plan and its built-in
// kinds: request, delay, assign, exec and assert.
//
// A step is built once from its YAML definition during plan expansion and is then
// executed by every iteration. Steps hold no per-iteration state; everything an
// execution needs arrives through its arguments.
package step

import (
	"context"
	"errors"

	"github.com/torosent/harraw/internal/config"
	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/interpolator"
	"github.com/torosent/harraw/internal/pool"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/tracing"
	"github.com/torosent/harraw/internal/variables"
)

// ErrAssertionMismatch is returned when an assert step does not hold.
var ErrAssertionMismatch = errors.New("Assertion mismatched")

// Step is one executable unit of a plan.
type Step interface {
	// Name returns the display name from the step definition.
	Name() string
	// Execute runs the step for one iteration. It may read and mutate vars and
	// append to sink. A returned error aborts the whole run.
	Execute(ctx context.Context, vars *variables.Context, sink *report.Sink, env *Env) error
}

// Env carries the run-wide collaborators shared by all iterations.
type Env struct {
	Config  *config.Config
	Pool    *pool.ClientPool
	Interp  *interpolator.Interpolator
	Console *console.Printer
	Tracing *tracing.Provider
}

// NewEnv wires an Env for cfg. The printer doubles as the warning sink for
// relaxed interpolation.
func NewEnv(cfg *config.Config, printer *console.Printer, tp *tracing.Provider) *Env {
	if printer == nil {
		printer = console.Discard()
	}
	return &Env{
		Config:  cfg,
		Pool:    pool.NewClientPool(),
		Interp:  interpolator.New(printer),
		Console: printer,
		Tracing: tp,
	}
}

func (e *Env) printer() *console.Printer {
	if e == nil || e.Console == nil {
		return console.Discard()
	}
	return e.Console
}

func (e *Env) interpolator() *interpolator.Interpolator {
	if e == nil || e.Interp == nil {
		return interpolator.New(e.printer())
	}
	return e.Interp
}

func (e *Env) strict() bool {
	if e == nil || e.Config == nil {
		return true
	}
	return e.Config.Strict()
}

func (e *Env) resolve(template string, vars *variables.Context) (string, error) {
	return e.interpolator().Resolve(template, vars, e.strict())
}

// Item is the per-step value of a generated step together with its emission
// index. It is bound into the context as "item" and "index" before the step runs.
type Item struct {
	Value any
	Index int
}

func (it *Item) bind(vars *variables.Context) {
	if it == nil {
		return
	}
	vars.Set("item", it.Value)
	vars.Set("index", it.Index)
}
