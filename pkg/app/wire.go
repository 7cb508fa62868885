package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jpodivin/mpm/internal/config"
	"github.com/jpodivin/mpm/internal/cron"
	"github.com/jpodivin/mpm/internal/gateway"
	"github.com/jpodivin/mpm/internal/health"
	"github.com/jpodivin/mpm/internal/manpage"
	"github.com/jpodivin/mpm/internal/mcpserver"
	"github.com/jpodivin/mpm/internal/security"
	"github.com/jpodivin/mpm/internal/tool"
	"github.com/jpodivin/mpm/internal/tracing"
	"github.com/jpodivin/mpm/modules/audit/sqlite"
)

// App holds every wired component of a running mpm process.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	Audit     *security.AuditLogger
	Metrics   *gateway.Metrics
	Service   *manpage.Service
	Registry  *tool.Registry
	MCP       *mcpserver.Server
	Gateway   *gateway.Gateway
	Check     *health.LookupCheck
	Scheduler *cron.Scheduler

	version string
	commit  string
	date    string
	closers []func(context.Context) error
}

// Build loads configuration and wires all components without starting any
// of them. Callers must Close the returned App.
func Build(ctx context.Context, params RunParams) (*App, error) {
	params.defaults()

	cfg, cfgPath, err := config.LoadOptional(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		ConfigPath: cfgPath,
		version:    params.Version,
		commit:     params.Commit,
		date:       params.Date,
	}

	redactor := security.NewRedactor()
	redactor.AddEnvironment(params.Environ)

	logger, err := newLogger(cfg.Log, params.Stderr, redactor)
	if err != nil {
		return nil, err
	}
	a.Logger = logger

	if err := a.wireAudit(ctx, cfg.Audit, redactor); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	tracer, shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    "mpm",
		ServiceVersion: params.Version,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	a.Metrics = gateway.NewMetrics()

	runner := params.Runner
	if runner == nil {
		runner = manpage.ExecRunner{Env: security.LookupEnv(params.Environ)}
	}
	executor := manpage.NewExecutor(manpage.ExecutorConfig{
		Runner:   runner,
		Logger:   logger.With("component", "executor"),
		Tracer:   tracer,
		Observer: a.Metrics,
	})
	a.Service = manpage.NewService(executor, cfg.Man.Binary, logger.With("component", "manpage"))

	a.Registry = tool.NewRegistry()
	a.Registry.SetAuditLogger(a.Audit)
	if rl := security.NewRateLimiter(cfg.RateLimit); rl.Enabled() {
		a.Registry.SetRateLimiter(rl)
	}
	a.Registry.SetRecorder(a.Metrics)
	a.Registry.SetTracer(tracer)
	for _, t := range []tool.Tool{manpage.NewSearchTool(a.Service), manpage.NewPageTool(a.Service)} {
		if err := a.Registry.Register(t); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("registering tool: %w", err)
		}
	}

	a.MCP = mcpserver.New(a.Registry, mcpserver.Config{
		Name:    mcpserver.DefaultName,
		Version: params.Version,
		Logger:  logger,
	})

	a.Check = health.NewLookupCheck(health.CheckConfig{
		Binary:   cfg.Man.Binary,
		Schedule: cfg.Health.Schedule,
		Gauge:    a.Metrics,
		Logger:   logger.With("component", "health"),
		LookPath: params.LookPath,
	})
	a.Scheduler = cron.NewScheduler(logger.With("component", "cron"))
	if err := a.Scheduler.RegisterJob(a.Check); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	if cfg.Gateway.Bind != "" {
		a.Gateway = gateway.New(gateway.Config{Bind: cfg.Gateway.Bind}, a.Metrics, a.Check, params.Version, logger)
	}

	return a, nil
}

// wireAudit builds the audit logger with its JSONL file and SQLite sink.
// With neither configured the logger still runs so that the registry has a
// single code path, but events go nowhere.
func (a *App) wireAudit(ctx context.Context, cfg config.AuditConfig, redactor *security.Redactor) error {
	auditCfg := security.AuditLoggerConfig{
		Redactor: redactor,
		OnError: func(err error) {
			a.Logger.Warn("audit sink failed", "error", err)
		},
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening audit file: %w", err)
		}
		auditCfg.Writer = f
		a.closers = append(a.closers, func(context.Context) error { return f.Close() })
	}

	if cfg.SQLite != "" {
		store, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		auditCfg.Sink = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	}

	a.Audit = security.NewAuditLogger(auditCfg)
	return nil
}

// Call executes one tool through the full registry pipeline.
func (a *App) Call(ctx context.Context, name string, args json.RawMessage) (tool.Output, error) {
	return a.Registry.Execute(ctx, name, args)
}

// Close releases resources in reverse acquisition order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig, w io.Writer, redactor *security.Redactor) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch cfg.Format {
	case "json":
		inner = slog.NewJSONHandler(w, opts)
	default:
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}
