package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// minLiteralLen keeps short values such as "1" or "true" from turning every
// log line into placeholders.
const minLiteralLen = 8

// Redactor replaces secret values in strings with a redaction placeholder.
// Secrets are recognized by known token formats and by literal values taken
// from the process environment. Tool arguments pass the search allow-list
// unchanged when they look like API keys, so audit details and logs both go
// through a Redactor. All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Values shorter than minLiteralLen are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < minLiteralLen {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// AddEnvironment registers the values of every sensitive variable in
// environ as literals.
func (r *Redactor) AddEnvironment(environ []string) {
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if ok && isSensitiveEnvVar(key) {
			r.AddLiteral(value)
		}
	}
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}

	return s
}

// DefaultPatterns returns compiled regex patterns for common API key formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic before OpenAI, the latter would eat the prefix.
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
		regexp.MustCompile(`xox[bp]-[0-9]+-[a-zA-Z0-9]+`),
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]{20,}`),
	}
}
