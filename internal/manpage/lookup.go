// Package manpage turns untrusted page names and search patterns into calls
// to the system manual pager and reports every outcome as an Envelope.
//
// Input is checked against allow-lists before anything runs, and the pager
// is always started with an explicit argument vector, so a hostile string
// can never reach a shell.
package manpage

import (
	"context"
	"log/slog"
	"strconv"
)

// DefaultBinary is the lookup program used when none is configured.
const DefaultBinary = "man"

// Validation notes returned inside ValidationError.
const (
	InvalidQueryNote = "Query contains invalid characters"
	InvalidPageNote  = "Page name must contain only alphanumeric characters, underscores and dashes. " +
		"Optionally followed by a '.' and number for section."
)

// Service exposes the two lookup operations. It is stateless between calls.
type Service struct {
	exec   *Executor
	binary string
	logger *slog.Logger
}

// NewService creates a Service running binary through exec. An empty binary
// selects DefaultBinary.
func NewService(exec *Executor, binary string, logger *slog.Logger) *Service {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{exec: exec, binary: binary, logger: logger}
}

// Binary returns the lookup program the service invokes.
func (s *Service) Binary() string {
	return s.binary
}

// SearchDescriptions searches page descriptions for query (apropos).
func (s *Service) SearchDescriptions(ctx context.Context, query string) Envelope {
	if !IsValidSearchQuery(query) {
		s.logger.Error("invalid input submitted", "input", query)
		return Wrap(ValidationError{Input: query, Note: InvalidQueryNote})
	}

	out := s.exec.Execute(ctx, []string{s.binary, "-k", query})
	if out.Failed() {
		return Wrap(*out.Failure)
	}

	results := SplitLines(out.Process.Stdout)
	s.logger.Info("lookup successful, returning matches", "matches", len(results))
	return Wrap(SearchResult{Results: results})
}

// GetManpage retrieves page, optionally restricted to section. A zero
// section means no section was requested.
func (s *Service) GetManpage(ctx context.Context, page string, section int) Envelope {
	if !IsValidTopic(page) {
		s.logger.Error("invalid input submitted", "input", page)
		return Wrap(ValidationError{Input: page, Note: InvalidPageNote})
	}

	out := s.exec.Execute(ctx, PageArgs(s.binary, page, section))
	if out.Failed() {
		return Wrap(*out.Failure)
	}

	s.logger.Info("lookup successful, returning page", "page", page)
	return Wrap(PageResult{Text: out.Process.Stdout})
}

// PageArgs builds the argument vector for a page lookup.
func PageArgs(binary, page string, section int) []string {
	if section != 0 {
		return []string{binary, strconv.Itoa(section), page}
	}
	return []string{binary, page}
}
