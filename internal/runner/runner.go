package runner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/tracing"
	"github.com/torosent/harraw/internal/variables"
)

// Result captures an iterative run.
type Result struct {
	Reports  [][]report.Report // one list per iteration, indexed by iteration
	Duration time.Duration     // wall-clock time of the whole run
}

// Flatten returns every report of every iteration in iteration order.
func (r Result) Flatten() []report.Report {
	var out []report.Report
	for _, list := range r.Reports {
		out = append(out, list...)
	}
	return out
}

// Runner coordinates concurrent plan iterations.
type Runner struct {
	opt     Options
	limiter *rate.Limiter
}

// New creates a Runner.
func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

// Run executes all iterations. It returns the first step error after the other
// iterations have observed cancellation.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	results := make([][]report.Report, r.opt.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opt.Concurrency)

	// Scheduler: rate limiting is applied in start order, before a slot is taken.
	for i := 0; i < r.opt.Iterations; i++ {
		if err := r.limiter.Wait(gctx); err != nil {
			break
		}
		index := i
		g.Go(func() error {
			if err := sleep(gctx, r.opt.rampupDelay(index)); err != nil {
				return err
			}
			reports, err := r.iteration(gctx, index)
			results[index] = reports
			return err
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return Result{Reports: results, Duration: time.Since(start)}, err
}

// RunOnce executes a single pass of the plan as iteration 0 without ramp-up.
func (r *Runner) RunOnce(ctx context.Context) ([]report.Report, error) {
	return r.iteration(ctx, 0)
}

// iteration runs every step in order against a fresh context, inside one
// iteration span.
func (r *Runner) iteration(ctx context.Context, index int) (reports []report.Report, err error) {
	var tp *tracing.Provider
	if r.opt.Env != nil {
		tp = r.opt.Env.Tracing
	}
	ctx, span := tp.StartIteration(ctx, index)
	defer func() { tracing.EndSpan(span, err) }()

	base := ""
	if r.opt.Env != nil && r.opt.Env.Config != nil {
		base = r.opt.Env.Config.Base
	}
	vars := variables.NewIteration(index, base)
	sink := &report.Sink{}

	for _, s := range r.opt.Plan {
		if err := ctx.Err(); err != nil {
			return sink.Reports(), err
		}
		if err := s.Execute(ctx, vars, sink, r.opt.Env); err != nil {
			return sink.Reports(), fmt.Errorf("iteration %d: %w", index, err)
		}
	}
	return sink.Reports(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
