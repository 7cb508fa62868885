package manpage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/jpodivin/mpm/internal/tool"
)

// Tool names exposed to MCP clients.
const (
	SearchToolName = "search_descriptions"
	PageToolName   = "get_manpage"
)

var searchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "Pattern matched against manual page names and short descriptions."
		}
	},
	"required": ["query"]
}`)

var pageSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"page": {
			"type": "string",
			"description": "Manual page name, optionally followed by '.' and a section number, e.g. 'printf' or 'printf.3'."
		},
		"section": {
			"type": "integer",
			"description": "Manual section to search in. Omit to search all sections."
		}
	},
	"required": ["page"]
}`)

// resultSchema describes Envelope: "result" holds exactly one of the four
// variants, told apart by their required fields.
var resultSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"result": {
			"oneOf": [
				{
					"title": "ExecutionError",
					"type": "object",
					"properties": {
						"stdout": {"type": "string"},
						"stderr": {"type": "string"},
						"return_code": {"type": "integer"},
						"note": {"type": "string"}
					},
					"required": ["stdout", "stderr", "return_code", "note"],
					"additionalProperties": false
				},
				{
					"title": "SearchResult",
					"type": "object",
					"properties": {
						"results": {"type": "array", "items": {"type": "string"}}
					},
					"required": ["results"],
					"additionalProperties": false
				},
				{
					"title": "PageResult",
					"type": "object",
					"properties": {
						"text": {"type": "string"}
					},
					"required": ["text"],
					"additionalProperties": false
				},
				{
					"title": "ValidationError",
					"type": "object",
					"properties": {
						"input": {"type": "string"},
						"note": {"type": "string"}
					},
					"required": ["input", "note"],
					"additionalProperties": false
				}
			]
		}
	},
	"required": ["result"]
}`)

// ResultSchema returns the JSON Schema of Envelope.
func ResultSchema() json.RawMessage {
	return resultSchema
}

// Compile-time interface checks.
var (
	_ tool.OutputSchemer = (*SearchTool)(nil)
	_ tool.Rejecter      = (*SearchTool)(nil)
	_ tool.OutputSchemer = (*PageTool)(nil)
	_ tool.Rejecter      = (*PageTool)(nil)
)

// SearchTool adapts Service.SearchDescriptions to tool.Tool.
type SearchTool struct {
	svc *Service
}

// NewSearchTool creates the search_descriptions tool.
func NewSearchTool(svc *Service) *SearchTool {
	return &SearchTool{svc: svc}
}

// Name implements tool.Tool.
func (t *SearchTool) Name() string { return SearchToolName }

// Description implements tool.Tool.
func (t *SearchTool) Description() string {
	return "Search manual page names and descriptions for a pattern, like apropos. " +
		"Returns one line per matching page."
}

// Schema implements tool.Tool.
func (t *SearchTool) Schema() json.RawMessage { return searchSchema }

// OutputSchema implements tool.OutputSchemer.
func (t *SearchTool) OutputSchema() json.RawMessage { return resultSchema }

// Scopes implements tool.Tool.
func (t *SearchTool) Scopes() []tool.Scope { return []tool.Scope{tool.ScopeReadOnly} }

// Reject implements tool.Rejecter.
func (t *SearchTool) Reject(err error) (tool.Output, error) { return rejected(err) }

// Execute implements tool.Tool.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return tool.Output{}, err
	}

	q := parsed.Get("query")
	if q.Type != gjson.String {
		return envelopeOutput(Wrap(ValidationError{Input: q.Raw, Note: InvalidQueryNote}))
	}
	return envelopeOutput(t.svc.SearchDescriptions(ctx, q.String()))
}

// PageTool adapts Service.GetManpage to tool.Tool.
type PageTool struct {
	svc *Service
}

// NewPageTool creates the get_manpage tool.
func NewPageTool(svc *Service) *PageTool {
	return &PageTool{svc: svc}
}

// Name implements tool.Tool.
func (t *PageTool) Name() string { return PageToolName }

// Description implements tool.Tool.
func (t *PageTool) Description() string {
	return "Retrieve the full text of a manual page, optionally from a specific section."
}

// Schema implements tool.Tool.
func (t *PageTool) Schema() json.RawMessage { return pageSchema }

// OutputSchema implements tool.OutputSchemer.
func (t *PageTool) OutputSchema() json.RawMessage { return resultSchema }

// Scopes implements tool.Tool.
func (t *PageTool) Scopes() []tool.Scope { return []tool.Scope{tool.ScopeReadOnly} }

// Reject implements tool.Rejecter.
func (t *PageTool) Reject(err error) (tool.Output, error) { return rejected(err) }

// Execute implements tool.Tool.
func (t *PageTool) Execute(ctx context.Context, args json.RawMessage) (tool.Output, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return tool.Output{}, err
	}

	page := parsed.Get("page")
	if page.Type != gjson.String {
		return envelopeOutput(Wrap(ValidationError{Input: page.Raw, Note: InvalidPageNote}))
	}

	section := 0
	if s := parsed.Get("section"); s.Exists() && s.Type != gjson.Null {
		if s.Type != gjson.Number || s.Float() != float64(s.Int()) {
			return envelopeOutput(Wrap(ValidationError{
				Input: s.Raw,
				Note:  "Section must be an integer",
			}))
		}
		section = int(s.Int())
	}

	return envelopeOutput(t.svc.GetManpage(ctx, page.String(), section))
}

func parseArgs(args json.RawMessage) (gjson.Result, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if !gjson.ValidBytes(args) {
		return gjson.Result{}, fmt.Errorf("%w: malformed JSON", tool.ErrInvalidArguments)
	}
	parsed := gjson.ParseBytes(args)
	if !parsed.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: expected an object", tool.ErrInvalidArguments)
	}
	return parsed, nil
}

// rejected reports a call refused before the lookup program ran. Like a
// launch failure, the process never completed.
func rejected(err error) (tool.Output, error) {
	return envelopeOutput(Wrap(ExecutionError{
		ReturnCode: -1,
		Note:       fmt.Sprintf("Request rejected: %v.", err),
	}))
}

func envelopeOutput(env Envelope) (tool.Output, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return tool.Output{}, fmt.Errorf("encoding %s result: %w", env.Kind(), err)
	}
	return tool.Output{
		Content:    string(data),
		Structured: env,
		Kind:       string(env.Kind()),
		IsError:    env.IsError(),
	}, nil
}
