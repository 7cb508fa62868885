package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeGauge struct {
	values []bool
}

func (g *fakeGauge) SetBinaryAvailable(v bool) { g.values = append(g.values, v) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLookupCheck_Available(t *testing.T) {
	t.Parallel()

	gauge := &fakeGauge{}
	p := NewLookupCheck(CheckConfig{
		Binary:   "man",
		Schedule: "@every 5m",
		Gauge:    gauge,
		Logger:   testLogger(),
		LookPath: func(file string) (string, error) { return "/usr/bin/" + file, nil },
	})
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	if p.Status().Checked() {
		t.Fatal("status should be unchecked before the first run")
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := Status{Binary: "man", Path: "/usr/bin/man", Available: true, CheckedAt: fixed}
	if got := p.Status(); got != want {
		t.Errorf("Status = %+v, want %+v", got, want)
	}
	if len(gauge.values) != 1 || !gauge.values[0] {
		t.Errorf("gauge values = %v", gauge.values)
	}
	if p.Name() != CheckJobName || p.Schedule() != "@every 5m" {
		t.Errorf("Name/Schedule = %q/%q", p.Name(), p.Schedule())
	}
}

func TestLookupCheck_Missing(t *testing.T) {
	t.Parallel()

	gauge := &fakeGauge{}
	p := NewLookupCheck(CheckConfig{
		Binary:   "man",
		Gauge:    gauge,
		Logger:   testLogger(),
		LookPath: func(string) (string, error) { return "", errors.New("executable file not found in $PATH") },
	})

	err := p.Run(context.Background())
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}

	st := p.Status()
	if st.Available || st.Path != "" || st.Error == "" || !st.Checked() {
		t.Errorf("Status = %+v", st)
	}
	if len(gauge.values) != 1 || gauge.values[0] {
		t.Errorf("gauge values = %v", gauge.values)
	}
}

func TestLookupCheck_Recovers(t *testing.T) {
	t.Parallel()

	missing := true
	p := NewLookupCheck(CheckConfig{
		Binary: "man",
		Logger: testLogger(),
		LookPath: func(file string) (string, error) {
			if missing {
				return "", errors.New("not found")
			}
			return "/usr/bin/" + file, nil
		},
	})

	_ = p.Run(context.Background())
	missing = false
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run after recovery: %v", err)
	}
	if !p.Status().Available {
		t.Error("expected binary to be available after recovery")
	}
}
