// Package app provides the shared entry point for the mpm binary.
package app

import (
	"context"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jpodivin/mpm/internal/manpage"
	"github.com/jpodivin/mpm/internal/security"
)

// RunParams configures the application.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.FindPath is consulted and defaults apply when no file
	// exists.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// Stdin and Stdout carry MCP traffic. Stderr receives logs.
	// They default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Environ is the environment inherited by lookups after sanitising.
	// Defaults to os.Environ().
	Environ []string

	// Runner overrides the subprocess runner.
	Runner manpage.Runner

	// LookPath overrides exec.LookPath for the availability check.
	LookPath func(file string) (string, error)
}

func (p *RunParams) defaults() {
	if p.Stdin == nil {
		p.Stdin = os.Stdin
	}
	if p.Stdout == nil {
		p.Stdout = os.Stdout
	}
	if p.Stderr == nil {
		p.Stderr = os.Stderr
	}
	if p.Environ == nil {
		p.Environ = os.Environ()
	}
	if p.LookPath == nil {
		p.LookPath = exec.LookPath
	}
}

// Run wires the application and serves MCP on stdio until the client closes
// stdin, ctx is cancelled, or SIGINT/SIGTERM is received. The gateway and the
// check scheduler run alongside and stop with it.
func Run(ctx context.Context, params RunParams) error {
	params.defaults()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := Build(ctx, params)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	return a.Serve(ctx, params.Stdin, params.Stdout)
}

// Serve runs every long-lived component of a until one fails or the MCP
// session ends.
func (a *App) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	a.Audit.Log(security.AuditEvent{
		Type:   security.EventStartup,
		Detail: "mpm started",
		Metadata: map[string]string{
			"version": a.version,
			"commit":  a.commit,
			"built":   a.date,
			"binary":  a.Config.Man.Binary,
			"config":  a.ConfigPath,
		},
	})
	a.Logger.Info("mpm starting",
		"version", a.version,
		"commit", a.commit,
		"config", a.ConfigPath,
		"binary", a.Config.Man.Binary,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Check once before serving so that /health is meaningful immediately.
	a.Scheduler.RunNow(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return a.MCP.Serve(gctx, in, out)
	})
	g.Go(func() error {
		return a.Scheduler.Run(gctx)
	})
	if a.Gateway != nil {
		g.Go(func() error {
			return a.Gateway.Run(gctx)
		})
	}

	err := g.Wait()

	detail := "mpm stopped"
	if err != nil {
		detail = "mpm stopped: " + err.Error()
	}
	a.Audit.Log(security.AuditEvent{Type: security.EventShutdown, Detail: detail})
	a.Logger.Info("shutdown complete")
	return err
}
