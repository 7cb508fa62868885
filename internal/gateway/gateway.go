// Package gateway serves the operational HTTP endpoints: /health reports
// whether the lookup program is available and /metrics exposes Prometheus
// metrics. It never carries MCP traffic.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpodivin/mpm/internal/health"
)

// StatusSource reports the latest lookup program check.
type StatusSource interface {
	Status() health.Status
}

// Gateway is the HTTP listener for health and metrics.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	metrics   *Metrics
	status    StatusSource
	version   string
	startedAt time.Time
}

// New creates a Gateway. metrics and status may be nil, in which case the
// corresponding endpoint reports nothing useful but still answers.
func New(cfg Config, metrics *Metrics, status StatusSource, version string, logger *slog.Logger) *Gateway {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:    cfg,
		logger:    logger.With("component", "gateway"),
		metrics:   metrics,
		status:    status,
		version:   version,
		startedAt: time.Now(),
	}
}

// Handler returns the routed HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down within the configured timeout.
func (g *Gateway) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}
