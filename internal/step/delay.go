package step

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/variables"
)

// Delay pauses the iteration for a whole number of seconds.
type Delay struct {
	name    string
	seconds int
}

// NewDelay builds a Delay from `delay: {seconds: N}`.
func NewDelay(def Definition) (*Delay, error) {
	name, err := Extract(def, "name")
	if err != nil {
		return nil, err
	}
	block, err := extractBlock(def, "delay")
	if err != nil {
		return nil, err
	}
	seconds, ok := block["seconds"].(int)
	if !ok || seconds < 0 {
		return nil, fmt.Errorf("Invalid number of seconds for delay %q", name)
	}
	return &Delay{name: name, seconds: seconds}, nil
}

// Name returns the step name.
func (d *Delay) Name() string { return d.name }

// Duration returns the configured pause.
func (d *Delay) Duration() time.Duration { return time.Duration(d.seconds) * time.Second }

// Execute sleeps unless ctx is cancelled first.
func (d *Delay) Execute(ctx context.Context, _ *variables.Context, _ *report.Sink, env *Env) error {
	timer := time.NewTimer(d.Duration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	env.printer().Step(d.name, console.Key.Render(fmt.Sprint(d.seconds))+console.Value.Render("s"))
	return nil
}
