package tool

import "errors"

var (
	// ErrToolNotFound is returned when a tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrNoScopes is returned when a tool declares no scopes.
	ErrNoScopes = errors.New("tool must declare at least one scope")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrInvalidArguments is returned when tool arguments are not a JSON object.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)
