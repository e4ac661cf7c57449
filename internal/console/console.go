// Package console prints operator-facing lines: one per executed step, startup
// banner fields, and warnings.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const nameWidth = 25

var (
	colorGreen   = lipgloss.Color("2")
	colorRed     = lipgloss.Color("1")
	colorYellow  = lipgloss.Color("3")
	colorMagenta = lipgloss.Color("5")
	colorCyan    = lipgloss.Color("6")
)

var (
	// Name styles step names.
	Name = lipgloss.NewStyle().Foreground(colorGreen)
	// Key styles keys, commands and URLs.
	Key = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	// Value styles values and units.
	Value = lipgloss.NewStyle().Foreground(colorMagenta)
	// Label styles banner labels.
	Label = lipgloss.NewStyle().Foreground(colorYellow)
	// Failure styles failed statuses and slow steps.
	Failure = lipgloss.NewStyle().Foreground(colorRed)
	// Warning styles the warning prefix.
	Warning = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

// Warner receives non-fatal warnings.
type Warner interface {
	Warn(format string, args ...any)
}

// Printer writes console output. It is safe for concurrent use.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	quiet   bool
	verbose bool
}

// Options configure a Printer.
type Options struct {
	Out     io.Writer // defaults to os.Stdout
	Err     io.Writer // defaults to os.Stderr
	Quiet   bool      // suppress per-step lines
	Verbose bool      // print request/response details
}

// New creates a Printer.
func New(opt Options) *Printer {
	if opt.Out == nil {
		opt.Out = os.Stdout
	}
	if opt.Err == nil {
		opt.Err = os.Stderr
	}
	return &Printer{out: opt.Out, err: opt.Err, quiet: opt.Quiet, verbose: opt.Verbose}
}

// Discard returns a Printer that drops everything.
func Discard() *Printer {
	return New(Options{Out: io.Discard, Err: io.Discard})
}

// Quiet reports whether step lines are suppressed.
func (p *Printer) Quiet() bool { return p.quiet }

// IsVerbose reports whether request details are printed.
func (p *Printer) IsVerbose() bool { return p.verbose }

// Step prints one aligned line for an executed step unless quiet.
func (p *Printer) Step(name, detail string) {
	if p.quiet {
		return
	}
	p.println(p.out, fmt.Sprintf("%s %s", Name.Render(pad(name)), detail))
}

// Info prints a banner field such as "Concurrency 4".
func (p *Printer) Info(label string, value any) {
	p.println(p.out, fmt.Sprintf("%s %s", Label.Render(label), Value.Render(fmt.Sprint(value))))
}

// Println prints a plain line.
func (p *Printer) Println(line string) {
	p.println(p.out, line)
}

// Verbose prints a detail line when verbose output is enabled.
func (p *Printer) Verbose(format string, args ...any) {
	if !p.verbose {
		return
	}
	p.println(p.out, fmt.Sprintf(format, args...))
}

// Warn prints a warning to the error stream. Warnings ignore quiet.
func (p *Printer) Warn(format string, args ...any) {
	p.println(p.err, fmt.Sprintf("%s %s", Warning.Render("WARNING!"), fmt.Sprintf(format, args...)))
}

// Error prints an error line to the error stream.
func (p *Printer) Error(format string, args ...any) {
	p.println(p.err, Failure.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) println(w io.Writer, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(w, line)
}

func pad(name string) string {
	if len(name) >= nameWidth {
		return name
	}
	return fmt.Sprintf("%-*s", nameWidth, name)
}
