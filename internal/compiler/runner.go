package compiler

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/cmpile/cmpile/internal/codes"
)

// Commander interface for testing
type Commander interface {
	CombinedOutput() ([]byte, error)
}

// Runner executes toolchain invocations and captures their diagnostics.
type Runner struct {
	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// NewRunner creates a runner backed by os/exec.
func NewRunner() *Runner {
	return &Runner{
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// Run executes a command and returns its combined output. On a non-zero exit
// the output is still returned alongside a descriptive error.
func (r *Runner) Run(ctx context.Context, cmd ShellCommand) (string, error) {
	c := r.execCommand(ctx, cmd.Path, cmd.Args...)

	out, err := c.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			if codes.IsSuccess(code) {
				return string(out), nil
			}

			return string(out), fmt.Errorf("%s exited with code %d: %s", cmd.Path, code, codes.GetErrorMessage(code))
		}

		return string(out), err
	}

	return string(out), nil
}
