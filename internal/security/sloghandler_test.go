package security

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newRedactingLogger(buf *bytes.Buffer, r *Redactor) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, r))
}

func TestRedactingHandler_RedactsMessageAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewRedactor()
	r.AddLiteral("glpat-0123456789")
	logger := newRedactingLogger(&buf, r)

	logger.Error("invalid input submitted sk-abcdefghijklmnopqrstuvwxyz",
		"input", "glpat-0123456789",
		"command", "man -k ls",
	)

	output := buf.String()
	for _, secret := range []string{"sk-abcdefghijklmnopqrstuvwxyz", "glpat-0123456789"} {
		if strings.Contains(output, secret) {
			t.Errorf("secret %q found in log output: %s", secret, output)
		}
	}
	if !strings.Contains(output, "man -k ls") {
		t.Errorf("safe value missing from output: %s", output)
	}
}

func TestRedactingHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewRedactor()
	r.AddLiteral("persistent-secret")
	logger := newRedactingLogger(&buf, r).
		With("component", "manpage", "token", "persistent-secret").
		WithGroup("lookup")

	logger.Info("executing lookup",
		slog.Group("process", slog.String("stderr", "ghp_abcdefghijklmnopqrstuvwxyz")),
	)

	output := buf.String()
	if strings.Contains(output, "persistent-secret") || strings.Contains(output, "ghp_abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("secret found in output: %s", output)
	}
	if !strings.Contains(output, "component=manpage") {
		t.Errorf("component attribute missing: %s", output)
	}
}

func TestRedactingHandler_ErrorValue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, NewRedactor())

	logger.Error("failed", "error", errString("auth sk-abcdefghijklmnopqrstuvwxyz rejected"))

	if strings.Contains(buf.String(), "sk-abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("secret found in error attribute: %s", buf.String())
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := NewRedactingHandler(inner, NewRedactor())

	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be disabled with warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error to be enabled with warn level")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
