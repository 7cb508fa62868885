package tool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jpodivin/mpm/internal/security"
)

type registryTestTool struct {
	name         string
	scopes       []Scope
	output       Output
	executeErr   error
	executeCalls *int
}

func (t registryTestTool) Name() string            { return t.name }
func (t registryTestTool) Description() string     { return "registry test tool" }
func (t registryTestTool) Schema() json.RawMessage { return json.RawMessage(`{}`) }
func (t registryTestTool) Scopes() []Scope         { return t.scopes }
func (t registryTestTool) Execute(context.Context, json.RawMessage) (Output, error) {
	if t.executeCalls != nil {
		*t.executeCalls = *t.executeCalls + 1
	}
	if t.executeErr != nil {
		return Output{}, t.executeErr
	}
	if t.output.Content != "" || t.output.IsError {
		return t.output, nil
	}
	return Output{Content: "ok", Kind: "ok"}, nil
}

type recordedCall struct {
	name, kind string
}

type fakeRecorder struct {
	mu          sync.Mutex
	calls       []recordedCall
	rateLimited []string
}

func (f *fakeRecorder) RecordToolCall(name, kind string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{name: name, kind: kind})
}

func (f *fakeRecorder) RecordRateLimited(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateLimited = append(f.rateLimited, name)
}

func auditTypes(t *testing.T, buf *bytes.Buffer) []security.EventType {
	t.Helper()
	var types []security.EventType
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var ev security.AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("decoding audit line %q: %v", sc.Text(), err)
		}
		types = append(types, ev.Type)
	}
	return types
}

func TestRegistryRegister_EmptyName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(registryTestTool{name: "", scopes: []Scope{ScopeReadOnly}})
	if !errors.Is(err, ErrEmptyToolName) {
		t.Fatalf("expected ErrEmptyToolName, got %v", err)
	}
}

func TestRegistryRegister_WhitespaceName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(registryTestTool{name: "   ", scopes: []Scope{ScopeReadOnly}})
	if !errors.Is(err, ErrEmptyToolName) {
		t.Fatalf("expected ErrEmptyToolName, got %v", err)
	}
}

func TestRegistryRegister_NoScopes(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.Register(registryTestTool{name: "get_manpage", scopes: nil})
	if !errors.Is(err, ErrNoScopes) {
		t.Fatalf("expected ErrNoScopes, got %v", err)
	}
}

func TestRegistryRegister_Duplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	t1 := registryTestTool{name: "get_manpage", scopes: []Scope{ScopeReadOnly}}
	if err := r.Register(t1); err != nil {
		t.Fatalf("unexpected first register error: %v", err)
	}

	err := r.Register(t1)
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistrySchemas_UsesCanonicalRegisteredName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(registryTestTool{name: " get_manpage ", scopes: []Scope{ScopeReadOnly}}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	schemas := r.Schemas()
	if len(schemas) != 1 {
		t.Fatalf("got %d schemas, want 1", len(schemas))
	}
	if schemas[0].Name != "get_manpage" {
		t.Fatalf("schema name = %q, want %q", schemas[0].Name, "get_manpage")
	}
}

func TestRegistry_SortedListings(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"search_descriptions", "get_manpage"} {
		if err := r.Register(registryTestTool{name: name, scopes: []Scope{ScopeReadOnly}}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	want := []string{"get_manpage", "search_descriptions"}
	if got := r.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	tools := r.Tools()
	if len(tools) != 2 || tools[0].Name() != want[0] || tools[1].Name() != want[1] {
		t.Errorf("Tools() order wrong: %v", tools)
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Get("nope")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistryExecute_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Execute(context.Background(), "nope", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistryExecute_RunsTool(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	calls := 0
	if err := r.Register(registryTestTool{
		name:         "get_manpage",
		scopes:       []Scope{ScopeReadOnly},
		executeCalls: &calls,
		output:       Output{Content: "done", Kind: "page"},
	}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	rec := &fakeRecorder{}
	r.SetRecorder(rec)

	out, err := r.Execute(context.Background(), "get_manpage", json.RawMessage(`{"page":"ls"}`))
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if out.Content != "done" {
		t.Fatalf("output = %q, want %q", out.Content, "done")
	}
	if calls != 1 {
		t.Fatalf("execute calls = %d, want 1", calls)
	}
	if len(rec.calls) != 1 || rec.calls[0] != (recordedCall{name: "get_manpage", kind: "page"}) {
		t.Errorf("recorded calls = %v", rec.calls)
	}
}

func TestRegistryExecute_ToolErrorRecordedAsError(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	boom := errors.New("boom")
	if err := r.Register(registryTestTool{
		name:       "get_manpage",
		scopes:     []Scope{ScopeReadOnly},
		executeErr: boom,
	}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	rec := &fakeRecorder{}
	r.SetRecorder(rec)

	var buf bytes.Buffer
	r.SetAuditLogger(security.NewAuditLogger(security.AuditLoggerConfig{Writer: &buf}))

	_, err := r.Execute(context.Background(), "get_manpage", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0].kind != "error" {
		t.Errorf("recorded calls = %v", rec.calls)
	}
	if !strings.Contains(buf.String(), `"detail":"error: boom"`) {
		t.Errorf("audit output missing error detail: %s", buf.String())
	}
}

func TestRegistryExecute_AuditTrail(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(registryTestTool{name: "search_descriptions", scopes: []Scope{ScopeReadOnly}}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	var buf bytes.Buffer
	r.SetAuditLogger(security.NewAuditLogger(security.AuditLoggerConfig{Writer: &buf}))

	if _, err := r.Execute(context.Background(), "search_descriptions", json.RawMessage(`{"query":"ls"}`)); err != nil {
		t.Fatalf("execute error: %v", err)
	}

	want := []security.EventType{security.EventToolCall, security.EventToolResult}
	if got := auditTypes(t, &buf); !slices.Equal(got, want) {
		t.Errorf("audit types = %v, want %v", got, want)
	}
}

func TestRegistryExecute_RateLimited(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	calls := 0
	if err := r.Register(registryTestTool{
		name:         "get_manpage",
		scopes:       []Scope{ScopeReadOnly},
		executeCalls: &calls,
	}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	rec := &fakeRecorder{}
	var buf bytes.Buffer
	r.SetRecorder(rec)
	r.SetRateLimiter(security.NewRateLimiter(security.RateLimitConfig{ToolCallsPerMin: 1}))
	r.SetAuditLogger(security.NewAuditLogger(security.AuditLoggerConfig{Writer: &buf}))

	if _, err := r.Execute(context.Background(), "get_manpage", nil); err != nil {
		t.Fatalf("first execute error: %v", err)
	}
	_, err := r.Execute(context.Background(), "get_manpage", nil)
	if !errors.Is(err, security.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("execute calls = %d, want 1", calls)
	}
	if !slices.Equal(rec.rateLimited, []string{"get_manpage"}) {
		t.Errorf("rate limited = %v", rec.rateLimited)
	}

	want := []security.EventType{security.EventToolCall, security.EventToolResult, security.EventRateLimit}
	if got := auditTypes(t, &buf); !slices.Equal(got, want) {
		t.Errorf("audit types = %v, want %v", got, want)
	}
}

type rejectingTool struct {
	registryTestTool
	rejected *error
}

func (t rejectingTool) Reject(err error) (Output, error) {
	*t.rejected = err
	return Output{Content: "rejected", Kind: "execution_error", IsError: true}, nil
}

func TestRegistryExecute_RateLimitedRejecter(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	calls := 0
	var rejected error
	if err := r.Register(rejectingTool{
		registryTestTool: registryTestTool{name: "get_manpage", scopes: []Scope{ScopeReadOnly}, executeCalls: &calls},
		rejected:         &rejected,
	}); err != nil {
		t.Fatalf("register error: %v", err)
	}
	r.SetRateLimiter(security.NewRateLimiter(security.RateLimitConfig{ToolCallsPerMin: 1}))

	if _, err := r.Execute(context.Background(), "get_manpage", nil); err != nil {
		t.Fatalf("first execute error: %v", err)
	}
	out, err := r.Execute(context.Background(), "get_manpage", nil)
	if err != nil {
		t.Fatalf("rejected execute error = %v, want nil", err)
	}
	if out.Content != "rejected" || out.Kind != "execution_error" {
		t.Errorf("output = %+v", out)
	}
	if !errors.Is(rejected, security.ErrRateLimited) {
		t.Errorf("Reject received %v, want ErrRateLimited", rejected)
	}
	if calls != 1 {
		t.Errorf("execute calls = %d, want 1", calls)
	}
}

func TestRegistryExecute_UnlimitedByDefault(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(registryTestTool{name: "get_manpage", scopes: []Scope{ScopeReadOnly}}); err != nil {
		t.Fatalf("register error: %v", err)
	}
	r.SetRateLimiter(security.NewRateLimiter(security.RateLimitConfig{}))

	for i := range 600 {
		if _, err := r.Execute(context.Background(), "get_manpage", nil); err != nil {
			t.Fatalf("execute %d error: %v", i, err)
		}
	}
}

func TestRegistryExecute_Span(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(registryTestTool{
		name:       "get_manpage",
		scopes:     []Scope{ScopeReadOnly},
		executeErr: errors.New("boom"),
	}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	sr := tracetest.NewSpanRecorder()
	r.SetTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("test"))

	_, _ = r.Execute(context.Background(), "get_manpage", nil)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "tool.execute" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
}

func TestTruncateForAudit(t *testing.T) {
	t.Parallel()

	short := "short"
	if got := truncateForAudit(short); got != short {
		t.Errorf("truncateForAudit(short) = %q", got)
	}

	long := strings.Repeat("é", maxAuditDetailLen)
	got := truncateForAudit(long)
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Fatalf("missing truncation suffix")
	}
	body := strings.TrimSuffix(got, "...(truncated)")
	if len(body) > maxAuditDetailLen {
		t.Errorf("body length %d exceeds %d", len(body), maxAuditDetailLen)
	}
	if !strings.HasPrefix(long, body) || len(body)%2 != 0 {
		t.Errorf("truncation split a rune")
	}
}
