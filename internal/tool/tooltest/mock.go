// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jpodivin/mpm/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameFunc        func() string
	DescriptionFunc func() string
	SchemaFunc      func() json.RawMessage
	ScopesFunc      func() []tool.Scope
	ExecuteFunc     func(ctx context.Context, args json.RawMessage) (tool.Output, error)

	mu           sync.Mutex
	ExecuteCalls int
	LastArgs     json.RawMessage
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock-tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.DescriptionFunc != nil {
		return m.DescriptionFunc()
	}
	return "a mock tool"
}

// Schema implements tool.Tool.
func (m *MockTool) Schema() json.RawMessage {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return json.RawMessage(`{"type":"object"}`)
}

// Scopes implements tool.Tool.
func (m *MockTool) Scopes() []tool.Scope {
	if m.ScopesFunc != nil {
		return m.ScopesFunc()
	}
	return []tool.Scope{tool.ScopeReadOnly}
}

// Execute implements tool.Tool.
func (m *MockTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	m.mu.Lock()
	m.ExecuteCalls++
	m.LastArgs = append(json.RawMessage(nil), args...)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args)
	}
	return tool.Output{Content: "ok", Kind: "ok"}, nil
}

// Calls returns the number of Execute calls so far.
func (m *MockTool) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}

// SimpleTool creates a read-only tool that echoes its name.
func SimpleTool(name string) *MockTool {
	return &MockTool{
		NameFunc:        func() string { return name },
		DescriptionFunc: func() string { return "simple test tool: " + name },
		ExecuteFunc: func(_ context.Context, _ json.RawMessage) (tool.Output, error) {
			return tool.Output{Content: "executed: " + name, Kind: "ok"}, nil
		},
	}
}

// ToolCall is one observation captured by MockRecorder.
type ToolCall struct {
	Name    string
	Kind    string
	Elapsed time.Duration
}

// MockRecorder captures tool.Recorder observations.
type MockRecorder struct {
	mu          sync.Mutex
	Calls       []ToolCall
	RateLimited []string
}

// RecordToolCall implements tool.Recorder.
func (m *MockRecorder) RecordToolCall(name, kind string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ToolCall{Name: name, Kind: kind, Elapsed: elapsed})
}

// RecordRateLimited implements tool.Recorder.
func (m *MockRecorder) RecordRateLimited(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimited = append(m.RateLimited, name)
}

// Snapshot returns copies of the captured observations.
func (m *MockRecorder) Snapshot() ([]ToolCall, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ToolCall(nil), m.Calls...), append([]string(nil), m.RateLimited...)
}

// Interface guards.
var (
	_ tool.Tool     = (*MockTool)(nil)
	_ tool.Recorder = (*MockRecorder)(nil)
)
