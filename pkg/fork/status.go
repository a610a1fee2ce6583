package fork

import (
	"fmt"
	"os"
)

const (
	// ExitCompleted is the status of a child whose unit returned normally.
	// It is non-zero on purpose: a child's process lifetime is exactly one
	// invocation, and it always ends in an explicit exit.
	ExitCompleted = 1

	// ExitFailed is the status of a child whose unit returned an error or
	// could not be decoded. Go panics exit with the same status.
	ExitFailed = 2
)

// ExitStatus is the reaped status of a child process.
type ExitStatus struct {
	// Pid is the child's process id, or -1 if no child was started.
	Pid int

	// Code is the exit code, or -1 if the child was killed by a signal or
	// its status is unknown.
	Code int

	// Signal names the signal that killed the child, if any.
	Signal string
}

var unknownStatus = ExitStatus{Pid: -1, Code: -1}

// Completed reports whether the child's unit returned normally.
func (s ExitStatus) Completed() bool {
	return s.Code == ExitCompleted
}

func (s ExitStatus) String() string {
	switch {
	case s.Pid < 0:
		return "not started"
	case s.Signal != "":
		return fmt.Sprintf("pid %d killed by %s", s.Pid, s.Signal)
	default:
		return fmt.Sprintf("pid %d exited with %d", s.Pid, s.Code)
	}
}

func exitStatusOf(pid int, ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Pid: pid, Code: -1}
	}
	return ExitStatus{
		Pid:    pid,
		Code:   ps.ExitCode(),
		Signal: signalOf(ps),
	}
}
