// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for mpm.
//
// The configuration file is optional: a missing file yields Default().
package config

import "github.com/jpodivin/mpm/internal/security"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Man       ManConfig                `yaml:"man"`
	Log       LogConfig                `yaml:"log"`
	Audit     AuditConfig              `yaml:"audit"`
	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
	Gateway   GatewayConfig            `yaml:"gateway"`
	Tracing   TracingConfig            `yaml:"tracing"`
	Health    HealthConfig             `yaml:"health"`
}

// ManConfig selects the lookup program.
type ManConfig struct {
	// Binary is a program name resolved through PATH, or an absolute path.
	Binary string `yaml:"binary"`
}

// LogConfig controls the process logger. Logs always go to stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuditConfig enables the audit trail destinations. Both are optional.
type AuditConfig struct {
	// File receives one JSON object per line.
	File string `yaml:"file,omitempty"`

	// SQLite is the path of a database that stores the same events.
	SQLite string `yaml:"sqlite,omitempty"`
}

// GatewayConfig controls the HTTP listener serving /health and /metrics.
type GatewayConfig struct {
	// Bind is a host:port address. Empty disables the gateway.
	Bind string `yaml:"bind,omitempty"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	// Endpoint is an OTLP/HTTP host:port or URL. Empty disables export.
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// HealthConfig schedules the lookup program availability check.
type HealthConfig struct {
	// Schedule is a cron expression or descriptor such as "@every 5m".
	Schedule string `yaml:"schedule"`
}
