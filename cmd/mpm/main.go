// Package main is the entry point for the mpm CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpodivin/mpm/internal/config"
	"github.com/jpodivin/mpm/internal/manpage"
	"github.com/jpodivin/mpm/internal/tool"
	"github.com/jpodivin/mpm/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errLookupFailed is returned by one-shot commands whose envelope holds an
// error variant, so that the exit status reflects it.
var errLookupFailed = errors.New("lookup failed")

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errLookupFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mpm",
		Short:         "An MCP server for looking up system manual pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), serveCmd(), searchCmd(), pageCmd(), toolsCmd(), auditCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mpm %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), runParams(cmd))
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search page descriptions and print the result envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]any{"query": args[0]})
			if err != nil {
				return err
			}
			return callOnce(cmd, manpage.SearchToolName, payload)
		},
	}
}

func pageCmd() *cobra.Command {
	var section int
	cmd := &cobra.Command{
		Use:   "page <name>",
		Short: "Retrieve a manual page and print the result envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"page": args[0]}
			if section != 0 {
				req["section"] = section
			}
			payload, err := json.Marshal(req)
			if err != nil {
				return err
			}
			return callOnce(cmd, manpage.PageToolName, payload)
		},
	}
	cmd.Flags().IntVarP(&section, "section", "s", 0, "Manual section to search in")
	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tools served over MCP with their schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.Build(ctx, runParams(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

			var list []toolSchema
			for _, s := range a.Registry.Schemas() {
				entry := toolSchema{Name: s.Name, InputSchema: s.Schema}
				if t, err := a.Registry.Get(s.Name); err == nil {
					entry.OutputSchema = tool.OutputSchemaOf(t)
				}
				list = append(list, entry)
			}
			data, err := json.MarshalIndent(list, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (binary: %s)\n", cfg.Man.Binary)
			return nil
		},
	}, initCmd())
	return cmd
}

func runParams(cmd *cobra.Command) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		Stdin:      cmd.InOrStdin(),
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	}
}

// callOnce runs a single tool call through the same pipeline as serve and
// prints the indented envelope.
func callOnce(cmd *cobra.Command, name string, payload json.RawMessage) error {
	ctx := cmd.Context()
	a, err := app.Build(ctx, runParams(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	out, err := a.Call(ctx, name, payload)
	if err != nil {
		return err
	}
	if err := printIndented(cmd.OutOrStdout(), out.Content); err != nil {
		return err
	}
	if out.IsError {
		return errLookupFailed
	}
	return nil
}

func printIndented(w io.Writer, content string) error {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		_, err = fmt.Fprintln(w, content)
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
