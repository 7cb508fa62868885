package manpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Process is the captured output of a lookup program that ran to completion.
type Process struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// Runner starts a program and waits for it. Implementations must honour
// context cancellation and must never interpret argv through a shell.
//
// A nil error means the program completed, whatever its exit status.
type Runner interface {
	Run(ctx context.Context, argv []string) (Process, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, argv []string) (Process, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, argv []string) (Process, error) {
	return f(ctx, argv)
}

// defaultWaitDelay bounds how long Run waits for output pipes after the
// child has been killed.
const defaultWaitDelay = 500 * time.Millisecond

// ExecRunner runs programs with os/exec, passing argv[1:] as literal
// arguments to argv[0].
type ExecRunner struct {
	// Env, when non-nil, replaces the inherited environment.
	Env []string

	// WaitDelay overrides defaultWaitDelay when positive.
	WaitDelay time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, argv []string) (Process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Process{}, ErrEmptyArgv
	}

	//nolint:gosec // argv is an explicit vector; no shell is involved.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if r.Env != nil {
		cmd.Env = r.Env
	}
	cmd.WaitDelay = defaultWaitDelay
	if r.WaitDelay > 0 {
		cmd.WaitDelay = r.WaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Process{}, fmt.Errorf("running %s: %w", argv[0], ctxErr)
	}

	proc := Process{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return proc, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() < 0 {
			return Process{}, fmt.Errorf("running %s: %w: %v", argv[0], ErrSignaled, err)
		}
		proc.ReturnCode = exitErr.ExitCode()
		return proc, nil
	}
	return Process{}, fmt.Errorf("running %s: %w", argv[0], err)
}
