package manpage

import "errors"

var (
	// ErrEmptyArgv is returned by a Runner asked to run nothing.
	ErrEmptyArgv = errors.New("empty argument vector")

	// ErrSignaled is returned when the lookup program was killed by a signal.
	ErrSignaled = errors.New("process terminated by signal")

	// ErrUnknownResult is returned when decoding an envelope whose result
	// matches none of the known variants.
	ErrUnknownResult = errors.New("unknown result variant")
)
