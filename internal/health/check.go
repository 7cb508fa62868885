// Package health tracks whether the lookup program can be started.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/jpodivin/mpm/internal/cron"
)

// ErrBinaryNotFound is returned by LookupCheck.Run when the lookup program
// cannot be resolved.
var ErrBinaryNotFound = errors.New("lookup binary not found")

// CheckJobName identifies the check in the scheduler.
const CheckJobName = "lookup_check"

// Status is the outcome of the most recent check.
type Status struct {
	Binary    string    `json:"binary"`
	Path      string    `json:"path,omitempty"`
	Available bool      `json:"available"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Checked reports whether the check has run at least once.
func (s Status) Checked() bool {
	return !s.CheckedAt.IsZero()
}

// Gauge receives availability after every check.
type Gauge interface {
	SetBinaryAvailable(available bool)
}

// CheckConfig configures a LookupCheck.
type CheckConfig struct {
	Binary   string
	Schedule string
	Gauge    Gauge
	Logger   *slog.Logger

	// LookPath overrides exec.LookPath for testing.
	LookPath func(file string) (string, error)
}

// LookupCheck resolves the lookup program on a schedule.
type LookupCheck struct {
	binary   string
	schedule string
	gauge    Gauge
	logger   *slog.Logger
	lookPath func(string) (string, error)
	now      func() time.Time

	mu     sync.RWMutex
	status Status
}

var _ cron.Job = (*LookupCheck)(nil)

// NewLookupCheck creates a check for cfg.Binary.
func NewLookupCheck(cfg CheckConfig) *LookupCheck {
	p := &LookupCheck{
		binary:   cfg.Binary,
		schedule: cfg.Schedule,
		gauge:    cfg.Gauge,
		logger:   cfg.Logger,
		lookPath: cfg.LookPath,
		now:      time.Now,
		status:   Status{Binary: cfg.Binary},
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.lookPath == nil {
		p.lookPath = exec.LookPath
	}
	return p
}

// Name implements cron.Job.
func (p *LookupCheck) Name() string { return CheckJobName }

// Schedule implements cron.Job.
func (p *LookupCheck) Schedule() string { return p.schedule }

// Run implements cron.Job.
func (p *LookupCheck) Run(_ context.Context) error {
	path, err := p.lookPath(p.binary)

	st := Status{
		Binary:    p.binary,
		Path:      path,
		Available: err == nil,
		CheckedAt: p.now(),
	}
	if err != nil {
		st.Path = ""
		st.Error = err.Error()
	}

	p.mu.Lock()
	changed := !p.status.Checked() || p.status.Available != st.Available
	p.status = st
	p.mu.Unlock()

	if p.gauge != nil {
		p.gauge.SetBinaryAvailable(st.Available)
	}

	if err != nil {
		if changed {
			p.logger.Error("lookup binary unavailable", "binary", p.binary, "error", err)
		}
		return fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, p.binary, err)
	}
	if changed {
		p.logger.Info("lookup binary available", "binary", p.binary, "path", path)
	}
	return nil
}

// Status returns the most recent check result.
func (p *LookupCheck) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
