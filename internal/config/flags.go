package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/harraw/internal/tags"
)

// Options carry the command-line flags of a run.
type Options struct {
	Benchmark string
	Report    string
	Compare   string
	Threshold float64
	Timeout   time.Duration

	RelaxedInterpolations bool
	NoCheckCertificate    bool
	Quiet                 bool
	Verbose               bool
	Nanosec               bool
	Stats                 bool
	JSON                  bool
	ListTags              bool
	ListTasks             bool

	Tags     []string // nil when --tags was not given or is empty
	SkipTags []string // nil when --skip-tags was not given or is empty
}

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.StringP("benchmark", "b", "", "Sets the benchmark file")
	flags.StringP("report", "r", "", "Runs a single pass and writes its reports to this file")
	flags.StringP("compare", "c", "", "Compares the run against a previously written report file")
	flags.Float64P("threshold", "t", 0, "Threshold in milliseconds used by --compare")
	flags.IntP("timeout", "o", int(DefaultTimeout/time.Second), "Per-request timeout in seconds")

	flags.Bool("relaxed-interpolations", false, "Do not fail on unknown interpolation variables")
	flags.Bool("no-check-certificate", false, "Disables TLS certificate validation")
	flags.BoolP("quiet", "q", false, "Disables output of executed steps")
	flags.BoolP("verbose", "v", false, "Prints request and response details")
	flags.BoolP("nanosec", "n", false, "Reports durations in nanoseconds")
	flags.BoolP("stats", "s", false, "Prints per-step statistics after the run")
	flags.Bool("json", false, "Prints statistics as JSON")

	flags.String("tags", "", "Comma-separated tags; only matching items run")
	flags.String("skip-tags", "", "Comma-separated tags; matching items are skipped")
	flags.Bool("list-tags", false, "Lists the tags used in the benchmark file")
	flags.Bool("list-tasks", false, "Lists the items selected by the tag filters")
}

// OptionsFromFlags reads a parsed flag set.
func OptionsFromFlags(fs *pflag.FlagSet) (Options, error) {
	var opt Options
	var err error

	if opt.Benchmark, err = fs.GetString("benchmark"); err != nil {
		return opt, err
	}
	opt.Benchmark = strings.TrimSpace(opt.Benchmark)
	if opt.Benchmark == "" {
		return opt, fmt.Errorf("--benchmark is required")
	}
	if opt.Report, err = fs.GetString("report"); err != nil {
		return opt, err
	}
	if opt.Compare, err = fs.GetString("compare"); err != nil {
		return opt, err
	}
	if opt.Threshold, err = fs.GetFloat64("threshold"); err != nil {
		return opt, err
	}
	if opt.Compare != "" && !fs.Changed("threshold") {
		return opt, fmt.Errorf("--compare requires --threshold")
	}
	if opt.Report != "" && opt.Compare != "" {
		return opt, fmt.Errorf("--report and --compare cannot be combined")
	}

	timeout, err := fs.GetInt("timeout")
	if err != nil {
		return opt, err
	}
	if timeout <= 0 {
		return opt, fmt.Errorf("--timeout must be greater than zero")
	}
	opt.Timeout = time.Duration(timeout) * time.Second

	bools := []struct {
		name string
		dst  *bool
	}{
		{"relaxed-interpolations", &opt.RelaxedInterpolations},
		{"no-check-certificate", &opt.NoCheckCertificate},
		{"quiet", &opt.Quiet},
		{"verbose", &opt.Verbose},
		{"nanosec", &opt.Nanosec},
		{"stats", &opt.Stats},
		{"json", &opt.JSON},
		{"list-tags", &opt.ListTags},
		{"list-tasks", &opt.ListTasks},
	}
	for _, b := range bools {
		if *b.dst, err = fs.GetBool(b.name); err != nil {
			return opt, err
		}
	}

	if fs.Changed("tags") {
		val, _ := fs.GetString("tags")
		opt.Tags = tags.ParseList(val)
	}
	if fs.Changed("skip-tags") {
		val, _ := fs.GetString("skip-tags")
		opt.SkipTags = tags.ParseList(val)
	}

	return opt, nil
}
