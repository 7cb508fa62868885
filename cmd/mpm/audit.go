package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpodivin/mpm/internal/config"
	"github.com/jpodivin/mpm/internal/security"
	"github.com/jpodivin/mpm/modules/audit/sqlite"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the SQLite audit trail",
	}
	cmd.PersistentFlags().String("db", "", "Audit database path (defaults to audit.sqlite from the configuration)")

	var limit int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openAuditStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			events, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, ev := range events {
				line := fmt.Sprintf("%s %-11s", ev.Timestamp.Format(time.RFC3339), ev.Type)
				if ev.ToolName != "" {
					line += " " + ev.ToolName
				}
				if ev.Detail != "" {
					line += " " + ev.Detail
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	recent.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events")

	var eventType string
	count := &cobra.Command{
		Use:   "count",
		Short: "Count stored audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openAuditStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Count(cmd.Context(), security.EventType(eventType))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	count.Flags().StringVarP(&eventType, "type", "t", "", "Only count events of this type")

	cmd.AddCommand(recent, count)
	return cmd
}

func openAuditStore(cmd *cobra.Command) (*sqlite.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, _, err := config.LoadOptional(cfgPath)
		if err != nil {
			return nil, err
		}
		path = cfg.Audit.SQLite
	}
	if path == "" {
		return nil, errors.New("no audit database: set audit.sqlite or pass --db")
	}
	return sqlite.Open(cmd.Context(), path)
}

// toolSchema is one entry printed by the tools command.
type toolSchema struct {
	Name         string          `json:"name"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}
