package step

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/report"
	"github.com/torosent/harraw/internal/variables"
)

// Shell is the interpreter used by exec steps.
var Shell = []string{"bash", "-c", "--"}

// Exec runs a shell command and optionally stores its output.
type Exec struct {
	name    string
	command string
	assign  string
}

// NewExec builds an Exec from `exec: {command}` and an optional item-level
// `assign` key.
func NewExec(def Definition) (*Exec, error) {
	name, err := Extract(def, "name")
	if err != nil {
		return nil, err
	}
	block, err := extractBlock(def, "exec")
	if err != nil {
		return nil, err
	}
	command, err := Extract(block, "command")
	if err != nil {
		return nil, err
	}
	assign, _, err := ExtractOptional(def, "assign")
	if err != nil {
		return nil, err
	}
	return &Exec{name: name, command: command, assign: assign}, nil
}

// Name returns the step name.
func (e *Exec) Name() string { return e.name }

// Execute interpolates the command, runs it and assigns its stdout with trailing
// whitespace removed. A non-zero exit status is not an error.
func (e *Exec) Execute(ctx context.Context, vars *variables.Context, _ *report.Sink, env *Env) error {
	env.printer().Step(e.name, console.Key.Render(e.command))

	command, err := env.resolve(e.command, vars)
	if err != nil {
		return fmt.Errorf("exec %q: %w", e.name, err)
	}

	args := append(append([]string(nil), Shell[1:]...), command)
	cmd := exec.CommandContext(ctx, Shell[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("exec %q: %w", e.name, err)
		}
		env.printer().Verbose("%s exited with %d: %s", e.name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
	}

	if e.assign != "" {
		vars.Set(e.assign, strings.TrimRight(stdout.String(), " \t\r\n"))
	}
	return nil
}
