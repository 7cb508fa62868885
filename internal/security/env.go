package security

import (
	"strings"
)

// sensitiveEnvPrefixes are environment variable prefixes that are stripped
// from subprocess environments to prevent secret leakage.
// Entries here cover all variables with these prefixes; for variables that
// require exact matching only, see sensitiveEnvExact.
var sensitiveEnvPrefixes = []string{
	"OPENAI_",
	"ANTHROPIC_",
	"AWS_SECRET",
	"AWS_SESSION_TOKEN",
	"SLACK_TOKEN",
	"SLACK_BOT_TOKEN",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"GITLAB_TOKEN",
	"SMTP_PASSWORD",
	"OTEL_EXPORTER_OTLP_HEADERS",
}

// sensitiveEnvExact are environment variable names that are stripped exactly.
// DATABASE_URL and DB_PASSWORD are exact-only to avoid over-blocking variables
// like DB_PORT or DATABASE_HOST which share the same prefix.
var sensitiveEnvExact = map[string]struct{}{
	"AWS_SECRET_ACCESS_KEY": {},
	"DATABASE_URL":          {},
	"DB_PASSWORD":           {},
	"REDIS_PASSWORD":        {},
}

// pagerEnv is forced on the lookup program. man hands MANPAGER and PAGER to
// a shell, so inherited values must never reach it.
var pagerEnv = []string{"MANPAGER=cat", "PAGER=cat"}

// SanitizedEnv returns a copy of environ with sensitive variables removed.
// Malformed entries without '=' are dropped.
func SanitizedEnv(environ []string) []string {
	result := make([]string, 0, len(environ))
	for _, entry := range environ {
		key, _, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		if isSensitiveEnvVar(key) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// LookupEnv returns the environment for the manual pager: environ without
// secrets and with any pager override replaced by cat.
func LookupEnv(environ []string) []string {
	sanitized := SanitizedEnv(environ)
	result := make([]string, 0, len(sanitized)+len(pagerEnv))
	for _, entry := range sanitized {
		key, _, _ := strings.Cut(entry, "=")
		if isPagerVar(key) {
			continue
		}
		result = append(result, entry)
	}
	return append(result, pagerEnv...)
}

// isSensitiveEnvVar checks if an environment variable name matches
// a known sensitive prefix or exact name.
func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)

	if _, ok := sensitiveEnvExact[upper]; ok {
		return true
	}

	for _, prefix := range sensitiveEnvPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}

	return false
}

func isPagerVar(name string) bool {
	switch strings.ToUpper(name) {
	case "MANPAGER", "PAGER":
		return true
	default:
		return false
	}
}
