package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/jpodivin/mpm/internal/cron"
)

// Validate checks the structural validity of a Config.
// All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: %q)", cfg.Version, CurrentVersion))
	}

	if strings.TrimSpace(cfg.Man.Binary) == "" {
		errs = append(errs, errors.New("config: man.binary must not be empty"))
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", cfg.Log.Format))
	}

	if cfg.RateLimit.ToolCallsPerMin < 0 {
		errs = append(errs, fmt.Errorf("config: rate_limit.tool_calls_per_min must not be negative, got %d", cfg.RateLimit.ToolCallsPerMin))
	}

	if cfg.Audit.File != "" && cfg.Audit.File == cfg.Audit.SQLite {
		errs = append(errs, errors.New("config: audit.file and audit.sqlite must be different paths"))
	}

	if cfg.Gateway.Bind != "" {
		if _, _, err := net.SplitHostPort(cfg.Gateway.Bind); err != nil {
			errs = append(errs, fmt.Errorf("config: gateway.bind: %w", err))
		}
	}

	errs = append(errs, validateTracing(cfg.Tracing)...)

	if err := cron.ValidateSchedule(cfg.Health.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("config: health.schedule: %w", err))
	}

	return errors.Join(errs...)
}

func validateTracing(tc TracingConfig) []error {
	if tc.Endpoint == "" {
		return nil
	}
	if strings.Contains(tc.Endpoint, "://") {
		u, err := url.Parse(tc.Endpoint)
		if err != nil {
			return []error{fmt.Errorf("config: tracing.endpoint: %w", err)}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return []error{fmt.Errorf("config: tracing.endpoint: unsupported scheme %q", u.Scheme)}
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(tc.Endpoint); err != nil {
		return []error{fmt.Errorf("config: tracing.endpoint: %w", err)}
	}
	return nil
}

// ParseLevel converts a level name such as "info" into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}
