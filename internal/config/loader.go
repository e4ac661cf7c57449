package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/torosent/harraw/internal/interpolator"
	"github.com/torosent/harraw/internal/variables"
)

// Warner receives configuration warnings.
type Warner interface {
	Warn(format string, args ...any)
}

// Loader builds a Config from CLI options and the benchmark file's top-level
// settings.
type Loader struct {
	warn   Warner
	interp *interpolator.Interpolator
}

// NewLoader creates a Loader. Invalid settings are reported through warn.
func NewLoader(warn Warner) *Loader {
	return &Loader{warn: warn, interp: interpolator.New(warn)}
}

// Load reads the benchmark file named by opt and merges it with the flags.
func (l *Loader) Load(opt Options) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(opt.Benchmark)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read benchmark %s: %w", opt.Benchmark, err)
	}

	cfg := &Config{
		BenchmarkFile:         opt.Benchmark,
		Timeout:               opt.Timeout,
		RelaxedInterpolations: opt.RelaxedInterpolations,
		NoCheckCertificate:    opt.NoCheckCertificate,
		Quiet:                 opt.Quiet,
		Verbose:               opt.Verbose,
		Nanosec:               opt.Nanosec,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if err := l.applySettings(cfg, v.AllSettings()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySettings applies the benchmark file's settings to cfg. Settings are
// resolved against an empty context, so only environment variables can be
// referenced.
func (l *Loader) applySettings(cfg *Config, settings map[string]interface{}) error {
	cfg.Iterations = l.readInt(settings, "iterations", DefaultIterations)
	cfg.Concurrency = l.readInt(settings, "concurrency", cfg.Iterations)
	cfg.Rampup = secondsToDuration(l.readInt(settings, "rampup", DefaultRampup))
	cfg.Rate = l.readInt(settings, "rate", 0)

	base, err := l.readString(settings, "base", "")
	if err != nil {
		return fmt.Errorf("base: %w", err)
	}
	cfg.Base = base

	if raw, ok := lookupSetting(settings, "tracing"); ok && raw != nil {
		tracing, err := parseTracing(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}
	return nil
}

// readInt returns a non-negative integer setting. Strings are interpolated in
// relaxed mode before parsing. Invalid or negative values fall back to def.
func (l *Loader) readInt(settings map[string]interface{}, name string, def int) int {
	raw, ok := lookupSetting(settings, name)
	if !ok || raw == nil {
		return def
	}

	var (
		value int
		err   error
	)
	if s, isString := raw.(string); isString {
		var resolved string
		resolved, err = l.interp.Resolve(s, variables.New(), false)
		if err == nil {
			value, err = strconv.Atoi(strings.TrimSpace(resolved))
		}
	} else {
		value, err = asInt(raw)
	}

	if err != nil {
		l.warnf("Invalid %s value!", name)
		return def
	}
	if value < 0 {
		l.warnf("Invalid negative %s value!", name)
		return def
	}
	return value
}

// readString returns a string setting, interpolated strictly when it looks like
// a template.
func (l *Loader) readString(settings map[string]interface{}, name, def string) (string, error) {
	raw, ok := lookupSetting(settings, name)
	if !ok || raw == nil {
		return def, nil
	}
	s, isString := raw.(string)
	if !isString {
		l.warnf("Invalid %s value!", name)
		return def, nil
	}
	if strings.Contains(s, "{") {
		return l.interp.Resolve(s, variables.New(), true)
	}
	return s, nil
}

func (l *Loader) warnf(format string, args ...any) {
	if l.warn != nil {
		l.warn.Warn(format, args...)
	}
}

func parseTracing(value interface{}) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tc := TracingConfig{SampleRate: 1.0}

	if raw, ok := lookupSetting(settings, "enabled"); ok {
		if tc.Enable, err = asBool(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("enabled: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, _ := asString(raw)
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, _ := asString(raw)
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if tc.Insecure, err = asBool(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename"); ok {
		val, _ := asString(raw)
		tc.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate"); ok {
		if tc.SampleRate, err = asFloat64(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = &val
	}
	return tc, nil
}
