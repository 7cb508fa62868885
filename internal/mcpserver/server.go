// Package mcpserver exposes the tool registry over the Model Context
// Protocol on a stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jpodivin/mpm/internal/tool"
)

// DefaultName is the server name announced during initialization.
const DefaultName = "Man MCP"

// Config configures a Server.
type Config struct {
	Name    string
	Version string
	Logger  *slog.Logger
}

// Server adapts a tool.Registry to an MCP server.
type Server struct {
	mcp      *server.MCPServer
	registry *tool.Registry
	logger   *slog.Logger
}

// New creates a Server publishing every tool currently in reg.
func New(reg *tool.Registry, cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(cfg.Name, cfg.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		registry: reg,
		logger:   cfg.Logger.With("component", "mcpserver"),
	}

	for _, t := range reg.Tools() {
		s.mcp.AddTool(describe(t), s.handler(t.Name()))
	}
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve reads JSON-RPC messages from in and writes responses to out until
// in is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", "tools", s.registry.Names())
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("mcp stdio: %w", err)
}

func describe(t tool.Tool) mcp.Tool {
	name := t.Name()
	mt := mcp.NewToolWithRawSchema(name, t.Description(), t.Schema())

	readOnly := tool.ReadOnly(t)
	mt.Annotations = mcp.ToolAnnotation{
		Title:        name,
		ReadOnlyHint: &readOnly,
	}
	if schema := tool.OutputSchemaOf(t); schema != nil {
		mcp.WithRawOutputSchema(schema)(&mt)
	}
	return mt
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := rawArguments(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := s.registry.Execute(ctx, name, args)
		if err != nil {
			s.logger.Warn("tool call rejected", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		if out.Structured != nil {
			return mcp.NewToolResultStructured(out.Structured, out.Content), nil
		}
		res := mcp.NewToolResultText(out.Content)
		res.IsError = out.IsError
		return res, nil
	}
}

func rawArguments(req mcp.CallToolRequest) (json.RawMessage, error) {
	if req.Params.Arguments == nil {
		return json.RawMessage(`{}`), nil
	}
	data, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tool.ErrInvalidArguments, err)
	}
	return data, nil
}
