// Package runner executes an expanded plan.
//
// In iterative mode the plan runs once per iteration, with at most Concurrency
// iterations in flight. Iteration starts are spread over the ramp-up window and
// may additionally be capped to a number of starts per second:
//
//	r := runner.New(runner.Options{
//		Plan:        p,
//		Env:         env,
//		Iterations:  100,
//		Concurrency: 10,
//		Rampup:      5 * time.Second,
//	})
//	result, err := r.Run(ctx)
//
// Each iteration owns its variable context and report list. The first step
// error cancels every other iteration and is returned from Run.
//
// Report mode runs the plan exactly once with [Runner.RunOnce], ignoring the
// concurrency, iteration and ramp-up settings.
package runner
