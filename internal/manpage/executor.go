package manpage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultTimeout is the wall-clock limit for a single lookup invocation.
const DefaultTimeout = 5 * time.Second

// NotFoundMarker is printed on stdout by some lookup programs instead of
// failing with a non-zero exit status.
const NotFoundMarker = "No manual entry for "

// State is the terminal state of one invocation.
type State string

// Terminal invocation states.
const (
	StateSuccess      State = "success"
	StateSoftFailure  State = "soft_failure"
	StateTimedOut     State = "timed_out"
	StateLaunchFailed State = "launch_failed"
)

// Outcome is the result of Execute. Exactly one of Process (on success) or
// Failure is meaningful; Failed tells which.
type Outcome struct {
	Process Process
	Failure *ExecutionError
	State   State
}

// Failed reports whether the invocation produced an ExecutionError.
func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// Observer receives one notification per finished invocation.
type Observer interface {
	ObserveProcess(state State, elapsed time.Duration)
}

// ExecutorConfig configures an Executor. Zero values select defaults.
type ExecutorConfig struct {
	// Runner starts the lookup program. Defaults to ExecRunner{}.
	Runner Runner

	// Logger receives one info record per attempt and one error record per
	// failure. Defaults to slog.Default().
	Logger *slog.Logger

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration

	// Tracer records a span per invocation. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Observer, if non-nil, is notified after every invocation.
	Observer Observer
}

// Executor runs the lookup program under a timeout and classifies what
// happened. It holds no per-call state and is safe for concurrent use.
type Executor struct {
	runner   Runner
	logger   *slog.Logger
	timeout  time.Duration
	tracer   trace.Tracer
	observer Observer
	now      func() time.Time
}

// NewExecutor creates an Executor from cfg.
func NewExecutor(cfg ExecutorConfig) *Executor {
	e := &Executor{
		runner:   cfg.Runner,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
		tracer:   cfg.Tracer,
		observer: cfg.Observer,
		now:      time.Now,
	}
	if e.runner == nil {
		e.runner = ExecRunner{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("")
	}
	return e
}

// Timeout returns the effective invocation timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute runs argv and returns either the completed process or an
// ExecutionError. It never returns a Go error: every failure is folded into
// the Outcome.
func (e *Executor) Execute(ctx context.Context, argv []string) Outcome {
	command := strings.Join(argv, " ")

	ctx, span := e.tracer.Start(ctx, "manpage.exec",
		trace.WithAttributes(attribute.StringSlice("manpage.argv", argv)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Info("executing lookup", "command", command)
	start := e.now()

	proc, err := e.runner.Run(ctx, argv)
	out := e.classify(ctx, command, proc, err)

	elapsed := e.now().Sub(start)
	if e.observer != nil {
		e.observer.ObserveProcess(out.State, elapsed)
	}

	span.SetAttributes(attribute.String("manpage.state", string(out.State)))
	if out.Failed() {
		span.SetAttributes(attribute.Int("manpage.return_code", out.Failure.ReturnCode))
		span.SetStatus(codes.Error, string(out.State))
	} else {
		span.SetAttributes(attribute.Int("manpage.return_code", out.Process.ReturnCode))
	}
	return out
}

func (e *Executor) classify(ctx context.Context, command string, proc Process, err error) Outcome {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.logger.Error("timeout encountered while running lookup",
				"command", command,
				"timeout", e.timeout,
			)
			return Outcome{
				State: StateTimedOut,
				Failure: &ExecutionError{
					ReturnCode: -1,
					Note:       fmt.Sprintf("Timeout exception: %q did not finish within %s: %v.", command, e.timeout, err),
				},
			}
		}

		e.logger.Error("unknown failure while running lookup",
			"command", command,
			"error", err,
		)
		return Outcome{
			State: StateLaunchFailed,
			Failure: &ExecutionError{
				ReturnCode: -1,
				Note:       fmt.Sprintf("Unknown exception %v.", err),
			},
		}
	}

	var note strings.Builder
	if proc.Stderr != "" {
		fmt.Fprintf(&note, "Unexpected error encountered: %s\n", proc.Stderr)
	}
	if strings.Contains(proc.Stdout, NotFoundMarker) {
		note.WriteString(proc.Stdout + "\n")
	}
	if proc.ReturnCode != 0 {
		fmt.Fprintf(&note, "Non zero return code `%d`\n", proc.ReturnCode)
	}

	if note.Len() > 0 {
		e.logger.Error("lookup reported an error",
			"command", command,
			"return_code", proc.ReturnCode,
			"stderr", proc.Stderr,
			"note", note.String(),
		)
		return Outcome{
			State: StateSoftFailure,
			Failure: &ExecutionError{
				Stdout:     proc.Stdout,
				Stderr:     proc.Stderr,
				ReturnCode: proc.ReturnCode,
				Note:       note.String(),
			},
		}
	}

	return Outcome{State: StateSuccess, Process: proc}
}
