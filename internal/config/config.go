package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when the benchmark file omits a setting or carries an
// invalid one.
const (
	DefaultIterations = 1
	DefaultRampup     = 0
	DefaultTimeout    = 10 * time.Second
)

// Config is the run configuration. It is built once before the plan is expanded
// and is read-only afterwards.
type Config struct {
	BenchmarkFile string
	Base          string
	Concurrency   int
	Iterations    int
	Rampup        time.Duration // total window over which iteration starts are spread
	Rate          int           // iteration starts per second (0 means unlimited)
	Timeout       time.Duration // per-request timeout

	RelaxedInterpolations bool
	NoCheckCertificate    bool
	Quiet                 bool
	Verbose               bool
	Nanosec               bool

	Tracing TracingConfig
}

// TracingConfig configures OTLP export of request spans.
type TracingConfig struct {
	Enable      bool
	Endpoint    string
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool
	ServiceName string
	SampleRate  float64
	Propagate   *bool // inject W3C trace headers; defaults to true when tracing is enabled
}

// Enabled reports whether spans should be recorded.
func (t TracingConfig) Enabled() bool {
	return t.Enable || strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether trace context headers are injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Strict reports whether unresolved interpolations are fatal.
func (c *Config) Strict() bool {
	return !c.RelaxedInterpolations
}

// DurationUnit names the unit of report durations.
func (c *Config) DurationUnit() string {
	if c.Nanosec {
		return "ns"
	}
	return "ms"
}

// ValidationError aggregates configuration issues.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns a copy of the individual issues.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate reports settings the loader cannot repair by falling back to defaults.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.BenchmarkFile) == "" {
		issues = append(issues, "benchmark file is required")
	}
	if c.Iterations < 0 {
		issues = append(issues, "iterations must be non-negative")
	}
	if c.Concurrency < 0 {
		issues = append(issues, "concurrency must be non-negative")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be non-negative")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be greater than zero")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}
	if p := strings.ToLower(c.Tracing.Protocol); p != "" && p != "grpc" && p != "http" {
		issues = append(issues, fmt.Sprintf("unsupported tracing protocol %q", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
