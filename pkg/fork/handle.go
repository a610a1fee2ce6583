package fork

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/forkpipe/pkg/log"
)

// Handle tracks one fork. It is owned by the forker that created it.
type Handle struct {
	id     string
	mode   Mode
	fn     string
	logger log.Logger

	mu      sync.RWMutex
	state   State
	pid     int
	status  ExitStatus
	err     error
	started time.Time
	done    chan struct{}
}

func newHandle(mode Mode, fn string, logger log.Logger) *Handle {
	return &Handle{
		id:     uuid.NewString(),
		mode:   mode,
		fn:     fn,
		logger: logger,
		state:  StateUnforked,
		pid:    -1,
		status: unknownStatus,
		done:   make(chan struct{}),
	}
}

// ID returns the fork's unique identifier. The child sees it in its
// FORKPIPE_FORK_ID environment variable.
func (h *Handle) ID() string { return h.id }

// Mode returns the operation that created the fork.
func (h *Handle) Mode() Mode { return h.mode }

// Pid returns the child's process id, or -1 before the child started or if
// starting it failed.
func (h *Handle) Pid() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pid
}

// State returns the current fork state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the setup or wait error, if any.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Done is closed once the child has been reaped or the fork failed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the child has been reaped and returns its status.
// Waiting does not reap; the forker does that in the background.
func (h *Handle) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-h.done:
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.status, h.err
	case <-ctx.Done():
		return unknownStatus, ctx.Err()
	}
}

func (h *Handle) transitionTo(to State, reason string) error {
	h.mu.Lock()
	from := h.state
	if err := checkTransition(from, to); err != nil {
		h.mu.Unlock()
		return err
	}
	h.state = to
	h.mu.Unlock()

	h.logger.Debug("fork state transition",
		log.ForkID(h.id),
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.String("reason", reason),
	)
	return nil
}

func (h *Handle) markRunning(pid int) {
	h.mu.Lock()
	h.pid = pid
	h.started = time.Now()
	h.mu.Unlock()
	_ = h.transitionTo(StateRunning, "child started")
}

func (h *Handle) markFailed(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	_ = h.transitionTo(StateFailed, err.Error())
	close(h.done)
}

func (h *Handle) markTerminated(status ExitStatus, err error) time.Duration {
	h.mu.Lock()
	h.status = status
	h.err = err
	elapsed := time.Since(h.started)
	h.mu.Unlock()
	_ = h.transitionTo(StateTerminated, status.String())
	close(h.done)
	return elapsed
}
