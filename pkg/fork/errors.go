package fork

import (
	"errors"
	"fmt"
)

// Errors returned by forkers. They wrap the underlying OS error and can be
// checked with errors.Is.
var (
	// ErrProcessCreation is returned when the child process cannot be started.
	ErrProcessCreation = errors.New("fork: process creation failed")

	// ErrPipeCreation is returned when the capture pipe cannot be allocated.
	ErrPipeCreation = errors.New("fork: pipe creation failed")

	// ErrPipeRead is returned when reading the capture pipe fails. Output
	// read before the failure is still available.
	ErrPipeRead = errors.New("fork: pipe read failed")

	// ErrParse is returned by TakeResultAs when the output does not parse.
	ErrParse = errors.New("fork: cannot parse output")

	// ErrInvalidTransition is returned for a fork state change that the
	// state machine does not allow.
	ErrInvalidTransition = errors.New("fork: invalid state transition")
)

// ParseError describes output that TakeResultAs could not parse.
type ParseError struct {
	// Output is the captured text that was consumed.
	Output string

	// Type is the requested Go type.
	Type string

	// Err is the scanner error.
	Err error
}

func (e *ParseError) Error() string {
	out := e.Output
	if len(out) > 64 {
		out = out[:64] + "..."
	}
	return fmt.Sprintf("fork: cannot parse output %q as %s: %v", out, e.Type, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// errorKind names the failure class for events and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrPipeCreation):
		return "pipe_creation"
	case errors.Is(err, ErrProcessCreation):
		return "process_creation"
	case errors.Is(err, ErrPipeRead):
		return "pipe_read"
	default:
		return "encode"
	}
}
