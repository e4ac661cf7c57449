package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/harraw/internal/config"
	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/metrics"
	"github.com/torosent/harraw/internal/output"
	"github.com/torosent/harraw/internal/plan"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/runner"
	"github.com/torosent/harraw/internal/step"
	"github.com/torosent/harraw/internal/tags"
	"github.com/torosent/harraw/internal/threshold"
	"github.com/torosent/harraw/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return newApp(os.Stdout, os.Stderr).runWith(ctx, args)
}

type app struct {
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) runWith(ctx context.Context, args []string) error {
	cmd := &cobra.Command{
		Use:           "harraw",
		Short:         "HTTP load testing driven by a YAML benchmark plan",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opt, err := config.OptionsFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), opt)
		},
	}
	config.RegisterFlags(cmd)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	return cmd.ExecuteContext(ctx)
}

func (a *app) execute(ctx context.Context, opt config.Options) error {
	printer := console.New(console.Options{
		Out:     a.stdout,
		Err:     a.stderr,
		Quiet:   opt.Quiet,
		Verbose: opt.Verbose,
	})

	filter, err := tags.NewFilter(opt.Tags, opt.SkipTags)
	if err != nil {
		return err
	}

	if opt.ListTags {
		return a.listTags(opt.Benchmark)
	}
	if opt.ListTasks {
		return a.listTasks(opt.Benchmark, filter)
	}

	cfg, err := config.NewLoader(printer).Load(opt)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	reportMode := opt.Report != ""
	printBanner(printer, cfg, reportMode)

	tp, err := tracing.Init(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			printer.Warn("tracing shutdown: %v", err)
		}
	}()

	env := step.NewEnv(cfg, printer, tp)
	defer env.Pool.Close()

	benchmark, err := plan.NewExpander(filter, env.Interp.Matcher()).Expand(cfg.BenchmarkFile, plan.DefaultAccessor)
	if err != nil {
		if errors.Is(err, plan.ErrEmptyPlan) {
			printer.Error("Empty benchmark. Exiting.")
		}
		return err
	}

	r := runner.New(runner.OptionsFromConfig(cfg, benchmark, env))

	if reportMode {
		reports, err := r.RunOnce(ctx)
		if err != nil {
			return err
		}
		return report.WriteFile(opt.Report, reports)
	}

	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if opt.Stats || opt.JSON {
		collector := metrics.NewCollector(cfg.Nanosec)
		collector.RecordIterations(result.Reports)
		summary := collector.Summary(result.Duration)
		if opt.JSON {
			if err := output.PrintJSONReport(a.stdout, summary); err != nil {
				return err
			}
		} else {
			output.PrintReport(a.stdout, summary)
		}
	}

	if opt.Compare != "" {
		if _, err := threshold.CompareFile(opt.Compare, result.Reports, opt.Threshold, printer); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) listTags(path string) error {
	list, err := plan.ListTags(path, plan.DefaultAccessor)
	if err != nil {
		return err
	}
	for _, t := range list {
		fmt.Fprintln(a.stdout, t)
	}
	return nil
}

func (a *app) listTasks(path string, filter *tags.Filter) error {
	list, err := plan.ListTasks(path, plan.DefaultAccessor, filter)
	if err != nil {
		return err
	}
	for _, item := range list {
		fmt.Fprintln(a.stdout, "---")
		fmt.Fprintln(a.stdout, item)
	}
	return nil
}

// printBanner prints the run settings. Report mode runs a single pass, so only
// the base URL applies.
func printBanner(printer *console.Printer, cfg *config.Config, reportMode bool) {
	if reportMode {
		printer.Warn("Report mode: on. Ignoring concurrency and iterations properties...")
	} else {
		printer.Info("Concurrency", cfg.Concurrency)
		printer.Info("Iterations", cfg.Iterations)
		printer.Info("Rampup", cfg.Rampup)
	}
	printer.Info("Base URL", cfg.Base)
	printer.Println("")
}
