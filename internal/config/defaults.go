package config

import "github.com/jpodivin/mpm/internal/manpage"

// Defaults applied to fields left empty.
const (
	CurrentVersion  = "1"
	DefaultLevel    = "info"
	DefaultFormat   = "text"
	DefaultSchedule = "@every 5m"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Man.Binary == "" {
		cfg.Man.Binary = manpage.DefaultBinary
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultFormat
	}
	if cfg.Health.Schedule == "" {
		cfg.Health.Schedule = DefaultSchedule
	}
}
