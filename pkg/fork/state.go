package fork

import "fmt"

// State is the lifecycle state of one fork.
type State int

const (
	StateUnforked State = iota
	StateForking
	StateRunning
	StateTerminated
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUnforked:
		return "Unforked"
	case StateForking:
		return "Forking"
	case StateRunning:
		return "Running"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// checkTransition validates a state change. A fork only moves forward:
//   - Unforked -> Forking
//   - Forking -> Running, Failed
//   - Running -> Terminated
func checkTransition(from, to State) error {
	ok := false
	switch from {
	case StateUnforked:
		ok = to == StateForking
	case StateForking:
		ok = to == StateRunning || to == StateFailed
	case StateRunning:
		ok = to == StateTerminated
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
