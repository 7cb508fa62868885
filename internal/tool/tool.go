// Package tool defines the tool interface and the registry that dispatches
// calls to registered tools. Every call passes through the registry, which
// applies rate limiting and emits audit records, metrics and trace spans.
package tool

import (
	"context"
	"encoding/json"
)

// Scope declares what kind of access a tool requires.
// Every tool must declare at least one scope.
type Scope string

// Scope values for tool access requirements.
const (
	ScopeReadOnly Scope = "read_only"
	ScopeExec     Scope = "exec"
)

// Tool is the interface that all mpm tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// Scopes returns the access scopes this tool requires.
	// Must return at least one scope.
	Scopes() []Scope

	// Execute runs the tool with the given JSON arguments.
	Execute(ctx context.Context, args json.RawMessage) (Output, error)
}

// OutputSchemer is implemented by tools whose Output.Structured always
// conforms to a JSON Schema. The schema is advertised to clients so they can
// validate structured results.
type OutputSchemer interface {
	OutputSchema() json.RawMessage
}

// OutputSchemaOf returns t's output schema, or nil when t does not declare one.
func OutputSchemaOf(t Tool) json.RawMessage {
	if s, ok := t.(OutputSchemer); ok {
		return s.OutputSchema()
	}
	return nil
}

// Rejecter is implemented by tools that report registry rejections, such as
// rate limiting, as their own result instead of an error.
type Rejecter interface {
	Reject(err error) (Output, error)
}

// Output is the result of a tool execution.
type Output struct {
	// Content is the textual form of the result.
	Content string

	// Structured is the machine-readable result, if the tool has one.
	Structured any

	// Kind labels the result for metrics and audit records.
	Kind string

	// IsError indicates whether the output represents an error condition.
	IsError bool
}

// ReadOnly reports whether t only declares read-only scopes.
func ReadOnly(t Tool) bool {
	scopes := t.Scopes()
	if len(scopes) == 0 {
		return false
	}
	for _, s := range scopes {
		if s != ScopeReadOnly {
			return false
		}
	}
	return true
}
