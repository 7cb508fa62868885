package tool

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jpodivin/mpm/internal/security"
)

// Schema is a tool's name paired with its JSON Schema, returned by Registry.Schemas.
type Schema struct {
	Name   string
	Schema json.RawMessage
}

// Recorder receives one observation per executed tool call.
type Recorder interface {
	RecordToolCall(name, kind string, elapsed time.Duration)
	RecordRateLimited(name string)
}

// Registry holds registered tools and orchestrates their execution.
// It is instance-based (not global) for better testability.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	auditLogger *security.AuditLogger
	rateLimiter *security.RateLimiter
	recorder    Recorder
	tracer      trace.Tracer
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
}

// SetAuditLogger configures audit logging for tool executions.
func (r *Registry) SetAuditLogger(logger *security.AuditLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditLogger = logger
}

// SetRateLimiter configures rate limiting for tool executions.
func (r *Registry) SetRateLimiter(limiter *security.RateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimiter = limiter
}

// SetRecorder configures metric recording for tool executions.
func (r *Registry) SetRecorder(rec Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = rec
}

// SetTracer configures the tracer used for tool execution spans.
func (r *Registry) SetTracer(tracer trace.Tracer) {
	if tracer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer = tracer
}

// Register adds a tool to the registry.
// It returns ErrNoScopes if the tool declares no scopes,
// and ErrDuplicateTool if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}
	if len(t.Scopes()) == 0 {
		return fmt.Errorf("%w: %s", ErrNoScopes, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Tools returns all registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b Tool) int {
		return cmp.Compare(strings.TrimSpace(a.Name()), strings.TrimSpace(b.Name()))
	})
	return tools
}

// Schemas returns all registered tool schemas sorted by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.tools))
	for name, t := range r.tools {
		schemas = append(schemas, Schema{
			Name:   name,
			Schema: t.Schema(),
		})
	}
	slices.SortFunc(schemas, func(a, b Schema) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return schemas
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Execute orchestrates tool execution: lookup → rate limit → audit → run →
// metrics → audit. A rate-limited call is handed to the tool's Reject when it
// implements Rejecter, otherwise it fails with security.ErrRateLimited.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Output, error) {
	t, err := r.Get(name)
	if err != nil {
		return Output{}, err
	}

	r.mu.RLock()
	rl := r.rateLimiter
	al := r.auditLogger
	rec := r.recorder
	tracer := r.tracer
	r.mu.RUnlock()

	if rl != nil {
		if err := rl.Allow(security.KindToolCall); err != nil {
			if al != nil {
				al.Log(security.AuditEvent{
					Type:     security.EventRateLimit,
					ToolName: name,
					Detail:   "tool_call rate limit exceeded",
				})
			}
			if rec != nil {
				rec.RecordRateLimited(name)
			}
			err = fmt.Errorf("tool %s: %w", name, err)
			if rj, ok := t.(Rejecter); ok {
				return rj.Reject(err)
			}
			return Output{}, err
		}
	}

	// Truncate args to prevent audit log bloat from large payloads.
	if al != nil {
		al.Log(security.AuditEvent{
			Type:     security.EventToolCall,
			ToolName: name,
			Detail:   truncateForAudit(string(args)),
		})
	}

	ctx, span := tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("tool.name", name),
	))
	defer span.End()

	start := time.Now()
	output, err := t.Execute(ctx, args)
	elapsed := time.Since(start)

	kind := output.Kind
	if err != nil {
		kind = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("tool.result_kind", kind))

	if rec != nil {
		rec.RecordToolCall(name, kind, elapsed)
	}

	if al != nil {
		detail := truncateForAudit(output.Content)
		if err != nil {
			detail = "error: " + err.Error()
		}
		al.Log(security.AuditEvent{
			Type:     security.EventToolResult,
			ToolName: name,
			Detail:   detail,
			Metadata: map[string]string{
				"kind":        kind,
				"is_error":    strconv.FormatBool(output.IsError || err != nil),
				"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
			},
		})
	}

	return output, err
}

// maxAuditDetailLen is the maximum length of audit detail strings.
// Longer values are truncated to prevent log bloat from large tool outputs.
const maxAuditDetailLen = 4096

// truncateForAudit truncates a string to maxAuditDetailLen, appending
// a truncation indicator if the string was shortened.
// It walks back to a valid UTF-8 rune boundary to avoid splitting multi-byte
// characters when the cut falls mid-rune.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
