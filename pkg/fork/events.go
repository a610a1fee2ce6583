package fork

import "time"

// Mode says which operation started a child.
type Mode string

const (
	// ModeDetached is Forker.Run: the parent does not wait.
	ModeDetached Mode = "detached"

	// ModeConcurrent is Forker.RunWith: the parent runs its own unit.
	ModeConcurrent Mode = "concurrent"

	// ModePiped is PipedForker.Invoke: the parent captures stdout.
	ModePiped Mode = "piped"
)

// EventHandler receives fork events. Methods are called synchronously from
// the goroutine performing the operation and must not block.
type EventHandler interface {
	OnForkStart(ForkStartEvent)
	OnForkError(ForkErrorEvent)
	OnChildExit(ChildExitEvent)
	OnCapture(CaptureEvent)
}

// ForkStartEvent is emitted once a child process is running.
type ForkStartEvent struct {
	ID   string
	Pid  int
	Mode Mode
	Func string
}

// ForkErrorEvent is emitted when a fork could not be set up.
type ForkErrorEvent struct {
	ID   string
	Mode Mode
	Func string
	// Kind is one of "encode", "pipe_creation", "process_creation".
	Kind string
	Err  error
}

// ChildExitEvent is emitted when a child has been reaped.
type ChildExitEvent struct {
	ID      string
	Mode    Mode
	Status  ExitStatus
	Elapsed time.Duration
}

// CaptureEvent is emitted after a piped child's output has been drained.
type CaptureEvent struct {
	ID     string
	Pid    int
	Bytes  int
	Chunks int
	// PipeCapacity is the kernel pipe buffer size, 0 if unknown.
	PipeCapacity int
	Elapsed      time.Duration
	Err          error
}

// emitter forwards to an optional handler.
type emitter struct {
	handler EventHandler
}

func (e emitter) forkStart(ev ForkStartEvent) {
	if e.handler != nil {
		e.handler.OnForkStart(ev)
	}
}

func (e emitter) forkError(ev ForkErrorEvent) {
	if e.handler != nil {
		e.handler.OnForkError(ev)
	}
}

func (e emitter) childExit(ev ChildExitEvent) {
	if e.handler != nil {
		e.handler.OnChildExit(ev)
	}
}

func (e emitter) capture(ev CaptureEvent) {
	if e.handler != nil {
		e.handler.OnCapture(ev)
	}
}
