package runner

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/harraw/internal/config"
	"github.com/torosent/harraw/internal/step"
)

// Options configure the Runner.
type Options struct {
	Plan           []step.Step                 // expanded plan shared by all iterations (required)
	Env            *step.Env                   // run-wide collaborators (required)
	Iterations     int                         // number of plan passes
	Concurrency    int                         // max iterations in flight
	Rampup         time.Duration               // window over which iteration starts are spread
	RatePerSecond  int                         // iteration starts per second (0 means unlimited)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

// OptionsFromConfig maps the run configuration onto runner options.
func OptionsFromConfig(cfg *config.Config, plan []step.Step, env *step.Env) Options {
	return Options{
		Plan:          plan,
		Env:           env,
		Iterations:    cfg.Iterations,
		Concurrency:   cfg.Concurrency,
		Rampup:        cfg.Rampup,
		RatePerSecond: cfg.Rate,
	}
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Iterations < 0 {
		o.Iterations = 0
	}
	if o.Rampup < 0 {
		o.Rampup = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	if o.Env == nil {
		o.Env = step.NewEnv(&config.Config{Timeout: config.DefaultTimeout}, nil, nil)
	}
}

// rampupDelay is how long iteration index waits before starting.
func (o *Options) rampupDelay(index int) time.Duration {
	if o.Rampup <= 0 || o.Iterations <= 0 {
		return 0
	}
	return time.Duration(int64(o.Rampup) * int64(index) / int64(o.Iterations))
}
