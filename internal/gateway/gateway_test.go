package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jpodivin/mpm/internal/health"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticStatus struct {
	status health.Status
}

func (s staticStatus) Status() health.Status { return s.status }

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.defaults()

	if cfg.Bind != "127.0.0.1:9464" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	checked := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		source     StatusSource
		wantCode   int
		wantStatus string
	}{
		{
			name:       "no source",
			source:     nil,
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "not yet checked",
			source:     staticStatus{health.Status{Binary: "man"}},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "available",
			source:     staticStatus{health.Status{Binary: "man", Path: "/usr/bin/man", Available: true, CheckedAt: checked}},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "missing binary",
			source:     staticStatus{health.Status{Binary: "man", CheckedAt: checked, Error: "not found"}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := New(Config{}, nil, tt.source, "1.2.3", testLogger())
			rec := httptest.NewRecorder()
			gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Version != "1.2.3" {
				t.Errorf("version = %q", resp.Version)
			}
			if tt.source == nil && resp.Lookup != nil {
				t.Errorf("lookup = %+v, want nil", resp.Lookup)
			}
			if tt.source != nil && (resp.Lookup == nil || resp.Lookup.Binary != "man") {
				t.Errorf("lookup = %+v", resp.Lookup)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordToolCall("get_manpage", "page", 10*time.Millisecond)

	gw := New(Config{}, m, nil, "", testLogger())
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`mpm_tool_calls_total{kind="page",tool="get_manpage"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsEndpoint_DisabledWithoutMetrics(t *testing.T) {
	t.Parallel()

	gw := New(Config{}, nil, nil, "", testLogger())
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	gw := New(Config{}, nil, nil, "", testLogger())
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	gw := New(Config{}, NewMetrics(), nil, "", testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- gw.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(url) //nolint:gosec,noctx // test-only loopback request
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("code = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	gw := New(Config{Bind: "256.0.0.1:bad"}, nil, nil, "", testLogger())
	if err := gw.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil, want listen error")
	}
}
