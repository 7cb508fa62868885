package security

import (
	"slices"
	"testing"
)

func TestIsSensitiveEnvVar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sensitive bool
	}{
		{"OPENAI_API_KEY", true},
		{"ANTHROPIC_API_KEY", true},
		{"AWS_SECRET_ACCESS_KEY", true},
		{"AWS_SESSION_TOKEN_STUFF", true},
		{"GITHUB_TOKEN", true},
		{"GH_TOKEN", true},
		{"DATABASE_URL", true},
		{"OTEL_EXPORTER_OTLP_HEADERS", true},
		{"PATH", false},
		{"HOME", false},
		{"MANPATH", false},
		{"LANG", false},
		{"DB_PORT", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := isSensitiveEnvVar(tt.name)
			if got != tt.sensitive {
				t.Errorf("isSensitiveEnvVar(%q) = %v, want %v", tt.name, got, tt.sensitive)
			}
		})
	}
}

func TestIsSensitiveEnvVar_CaseInsensitive(t *testing.T) {
	t.Parallel()

	if !isSensitiveEnvVar("openai_api_key") {
		t.Error("expected lower case openai_api_key to be sensitive")
	}
}

func TestSanitizedEnv(t *testing.T) {
	t.Parallel()

	in := []string{
		"PATH=/usr/bin",
		"GITHUB_TOKEN=ghp_abc",
		"MANPATH=/usr/share/man",
		"garbage",
		"=novalue",
	}
	got := SanitizedEnv(in)
	want := []string{"PATH=/usr/bin", "MANPATH=/usr/share/man"}

	if !slices.Equal(got, want) {
		t.Errorf("SanitizedEnv = %v, want %v", got, want)
	}
}

func TestLookupEnv_ForcesPager(t *testing.T) {
	t.Parallel()

	in := []string{
		"PATH=/usr/bin",
		"MANPAGER=sh -c 'touch /tmp/pwned'",
		"PAGER=less",
		"OPENAI_API_KEY=sk-test",
	}
	got := LookupEnv(in)
	want := []string{"PATH=/usr/bin", "MANPAGER=cat", "PAGER=cat"}

	if !slices.Equal(got, want) {
		t.Errorf("LookupEnv = %v, want %v", got, want)
	}
}

func TestLookupEnv_Empty(t *testing.T) {
	t.Parallel()

	got := LookupEnv(nil)
	want := []string{"MANPAGER=cat", "PAGER=cat"}
	if !slices.Equal(got, want) {
		t.Errorf("LookupEnv(nil) = %v, want %v", got, want)
	}
}
