package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jpodivin/mpm/internal/config"
)

// initAnswers holds the values collected by the config init form.
type initAnswers struct {
	Binary      string
	LogLevel    string
	LogFormat   string
	AuditFile   string
	AuditSQLite string
	GatewayBind string
	RatePerMin  string
}

func defaultAnswers() initAnswers {
	d := config.Default()
	return initAnswers{
		Binary:     d.Man.Binary,
		LogLevel:   d.Log.Level,
		LogFormat:  d.Log.Format,
		RatePerMin: strconv.Itoa(d.RateLimit.ToolCallsPerMin),
	}
}

// toConfig converts answers into a validated Config.
func (a initAnswers) toConfig() (*config.Config, error) {
	cfg := config.Default()
	cfg.Man.Binary = a.Binary
	cfg.Log.Level = a.LogLevel
	cfg.Log.Format = a.LogFormat
	cfg.Audit.File = a.AuditFile
	cfg.Audit.SQLite = a.AuditSQLite
	cfg.Gateway.Bind = a.GatewayBind

	if a.RatePerMin != "" {
		n, err := strconv.Atoi(a.RatePerMin)
		if err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		cfg.RateLimit.ToolCallsPerMin = n
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initCmd() *cobra.Command {
	var (
		force          bool
		nonInteractive bool
	)
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a configuration file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.SearchPaths()[0]
			if len(args) == 1 {
				path = args[0]
			}

			answers := defaultAnswers()
			if !nonInteractive {
				if err := initForm(&answers).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
						return nil
					}
					return err
				}
			}

			cfg, err := answers.toConfig()
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&nonInteractive, "yes", "y", false, "Write the defaults without prompting")
	return cmd
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Lookup program").
				Description("Name resolved through PATH, or an absolute path.").
				Value(&a.Binary).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&a.LogLevel),
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("text", "json")...).
				Value(&a.LogFormat),
			huh.NewInput().
				Title("Tool calls per minute").
				Description("0 disables the limit.").
				Value(&a.RatePerMin).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return errors.New("must be a non-negative integer")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Audit file (JSONL)").
				Description("Leave empty to disable.").
				Value(&a.AuditFile),
			huh.NewInput().
				Title("Audit database (SQLite)").
				Description("Leave empty to disable.").
				Value(&a.AuditSQLite),
			huh.NewInput().
				Title("Health and metrics address").
				Description("host:port, leave empty to disable.").
				Value(&a.GatewayBind),
		),
	)
}
