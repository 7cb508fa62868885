package manpage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind names the variant carried by an Envelope.
type Kind string

// Envelope variants.
const (
	KindExecutionError  Kind = "execution_error"
	KindSearchResult    Kind = "search_result"
	KindPage            Kind = "page"
	KindValidationError Kind = "validation_error"
)

// Result is implemented by the four envelope variants only.
type Result interface {
	Kind() Kind
	result()
}

// ValidationError reports input rejected before any process was started.
type ValidationError struct {
	// Input is the rejected string exactly as received.
	Input string `json:"input"`

	// Note explains why the input was rejected.
	Note string `json:"note"`
}

// ExecutionError describes a lookup that failed or reported a problem.
// ReturnCode is -1 when the process never completed (timeout or launch
// failure); otherwise it is the real exit status.
type ExecutionError struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
	Note       string `json:"note"`
}

// SearchResult lists the description lines matched by a search, in the
// order the lookup program printed them.
type SearchResult struct {
	Results []string `json:"results"`
}

// PageResult holds the unmodified text of a retrieved page.
type PageResult struct {
	Text string `json:"text"`
}

// Kind implements Result.
func (ValidationError) Kind() Kind { return KindValidationError }

// Kind implements Result.
func (ExecutionError) Kind() Kind { return KindExecutionError }

// Kind implements Result.
func (SearchResult) Kind() Kind { return KindSearchResult }

// Kind implements Result.
func (PageResult) Kind() Kind { return KindPage }

func (ValidationError) result() {}
func (ExecutionError) result()  {}
func (SearchResult) result()    {}
func (PageResult) result()      {}

// MarshalJSON keeps an empty result list encoded as [] rather than null.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	results := r.Results
	if results == nil {
		results = []string{}
	}
	return json.Marshal(struct {
		Results []string `json:"results"`
	}{results})
}

// Envelope is returned by every lookup operation and holds exactly one
// outcome variant.
type Envelope struct {
	Result Result `json:"result"`
}

// Wrap builds an Envelope around r.
func Wrap(r Result) Envelope {
	return Envelope{Result: r}
}

// Kind returns the variant held by the envelope, or "" when empty.
func (e Envelope) Kind() Kind {
	if e.Result == nil {
		return ""
	}
	return e.Result.Kind()
}

// IsError reports whether the envelope holds a validation or execution error.
func (e Envelope) IsError() bool {
	switch e.Kind() {
	case KindExecutionError, KindValidationError:
		return true
	default:
		return false
	}
}

// UnmarshalJSON restores the variant from its distinguishing fields.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Result) == 0 || bytes.Equal(raw.Result, []byte("null")) {
		e.Result = nil
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw.Result, &fields); err != nil {
		return fmt.Errorf("manpage: decoding result: %w", err)
	}

	var target Result
	switch {
	case has(fields, "results"):
		var r SearchResult
		if err := json.Unmarshal(raw.Result, &r); err != nil {
			return err
		}
		target = r
	case has(fields, "text"):
		var r PageResult
		if err := json.Unmarshal(raw.Result, &r); err != nil {
			return err
		}
		target = r
	case has(fields, "return_code"):
		var r ExecutionError
		if err := json.Unmarshal(raw.Result, &r); err != nil {
			return err
		}
		target = r
	case has(fields, "input"):
		var r ValidationError
		if err := json.Unmarshal(raw.Result, &r); err != nil {
			return err
		}
		target = r
	default:
		return ErrUnknownResult
	}
	e.Result = target
	return nil
}

func has(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}
