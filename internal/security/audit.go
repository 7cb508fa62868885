// Package security holds the runtime guards around tool execution: the audit
// trail, the tool-call rate limiter, secret redaction for logs and audit
// records, and the scrubbed environment handed to the lookup program.
package security

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventRateLimit  EventType = "rate_limit"
	EventStartup    EventType = "startup"
	EventShutdown   EventType = "shutdown"
)

// AuditEvent is a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	ToolName  string            `json:"tool_name,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink persists audit events somewhere other than the JSONL writer.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditLoggerConfig configures the audit logger.
type AuditLoggerConfig struct {
	// Writer is the destination for JSONL output. If nil, events are only
	// dispatched to Sink and OnEvent.
	Writer io.Writer

	// Sink, if non-nil, receives every event after it is written.
	Sink AuditSink

	// OnError, if non-nil, is called when Sink fails.
	OnError func(error)

	// Redactor, if non-nil, scrubs the Detail of every event.
	Redactor *Redactor

	// OnEvent, if non-nil, is called for every event (used in tests).
	OnEvent func(AuditEvent)

	// Now overrides time.Now for testing. Defaults to time.Now.
	Now func() time.Time
}

// AuditLogger writes structured audit events as JSONL.
type AuditLogger struct {
	writer   io.Writer
	sink     AuditSink
	onError  func(error)
	onEvent  func(AuditEvent)
	redactor *Redactor
	now      func() time.Time
	mu       sync.Mutex
}

// NewAuditLogger creates an audit logger with the given configuration.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{
		writer:   cfg.Writer,
		sink:     cfg.Sink,
		onError:  cfg.OnError,
		onEvent:  cfg.OnEvent,
		redactor: cfg.Redactor,
		now:      now,
	}
}

// Log writes an audit event. The timestamp is set automatically.
// The caller's Metadata map is never mutated; a copy is stored instead.
func (l *AuditLogger) Log(event AuditEvent) {
	event.Timestamp = l.now()
	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
	}

	if len(event.Metadata) > 0 {
		cp := make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			cp[k] = v
		}
		event.Metadata = cp
	}

	// Dispatch under one lock so that writer, sink and callback observe
	// the same ordering.
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}

	if l.writer != nil {
		_ = json.NewEncoder(l.writer).Encode(event)
	}

	if l.sink != nil {
		if err := l.sink.Record(context.Background(), event); err != nil && l.onError != nil {
			l.onError(err)
		}
	}
}
