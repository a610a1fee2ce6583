package fork

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/bft-labs/forkpipe/pkg/invoke"
	"github.com/bft-labs/forkpipe/pkg/log"
)

// Environment variables that carry a fork into the child.
const (
	// EnvUnit holds the encoded child unit.
	EnvUnit = "FORKPIPE_UNIT"

	// EnvForkID holds the Handle ID of the fork.
	EnvForkID = "FORKPIPE_FORK_ID"
)

// Forker starts children that run a single unit each.
// A Forker is safe for concurrent use.
type Forker struct {
	opts   options
	events emitter
	logger log.Logger

	// reapers tracks background waits on detached children.
	reapers sync.WaitGroup
}

// New creates a Forker.
func New(opts ...Option) *Forker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Forker{
		opts:   o,
		events: emitter{handler: o.events},
		logger: o.logger,
	}
}

// Run starts a child that invokes child and exits. It returns as soon as the
// child is running; the child's outcome is not examined. The child is reaped
// in the background, and the returned Handle reports its status once it has
// exited. A start failure is returned as ErrProcessCreation and not retried.
func (f *Forker) Run(child *invoke.Unit) (*Handle, error) {
	return f.RunContext(context.Background(), child)
}

// RunContext is like Run but kills the child when ctx is done.
func (f *Forker) RunContext(ctx context.Context, child *invoke.Unit) (*Handle, error) {
	return f.runDetached(ctx, child, ModeDetached)
}

// RunWith starts a child that invokes child, then invokes main in the
// calling goroutine and returns its result. The child is not waited for and
// nothing orders the two invocations beyond the fork itself. If the child
// cannot be started, main is not invoked.
func (f *Forker) RunWith(main, child *invoke.Unit) (interface{}, error) {
	return f.RunWithContext(context.Background(), main, child)
}

// RunWithContext is like RunWith but kills the child when ctx is done.
func (f *Forker) RunWithContext(ctx context.Context, main, child *invoke.Unit) (interface{}, error) {
	if _, err := f.runDetached(ctx, child, ModeConcurrent); err != nil {
		return nil, err
	}
	return main.Invoke()
}

// RunWithAs is RunWith with a typed result for main.
func RunWithAs[T any](f *Forker, main, child *invoke.Unit) (T, error) {
	if _, err := f.runDetached(context.Background(), child, ModeConcurrent); err != nil {
		var zero T
		return zero, err
	}
	return invoke.InvokeAs[T](main)
}

// Wait blocks until every detached child started by f has been reaped, or
// ctx is done.
func (f *Forker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.reapers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		f.logger.Warn("timed out waiting for children", log.Err(ctx.Err()))
		return ctx.Err()
	}
}

func (f *Forker) runDetached(ctx context.Context, child *invoke.Unit, mode Mode) (*Handle, error) {
	h := f.begin(mode, child)
	cmd, err := f.start(ctx, h, child, f.opts.stdout)
	if err != nil {
		return h, err
	}

	f.reapers.Add(1)
	go func() {
		defer f.reapers.Done()
		status, err := reap(cmd)
		f.finish(h, status, err)
	}()
	return h, nil
}

// begin creates the handle for a new fork and moves it to Forking.
func (f *Forker) begin(mode Mode, child *invoke.Unit) *Handle {
	h := newHandle(mode, child.Func().String(), f.logger)
	_ = h.transitionTo(StateForking, "fork requested")
	return h
}

// start encodes child and starts the child process with stdout as its
// standard output. The parent keeps its own reference to stdout.
func (f *Forker) start(ctx context.Context, h *Handle, child *invoke.Unit, stdout io.Writer) (*exec.Cmd, error) {
	enc, err := child.Encode()
	if err != nil {
		return nil, f.fail(h, fmt.Errorf("fork: encode %s: %w", child.Func(), err))
	}

	exe, err := f.executable()
	if err != nil {
		return nil, f.fail(h, fmt.Errorf("%w: %w", ErrProcessCreation, err))
	}

	cmd := exec.CommandContext(ctx, exe)
	cmd.Args = []string{os.Args[0]}
	cmd.Env = childEnv(os.Environ(), f.opts.env, EnvUnit+"="+enc, EnvForkID+"="+h.ID())
	cmd.Stdout = stdout
	cmd.Stderr = f.opts.stderr
	cmd.SysProcAttr = sysProcAttr(&f.opts)

	if err := cmd.Start(); err != nil {
		return nil, f.fail(h, fmt.Errorf("%w: %w", ErrProcessCreation, err))
	}

	h.markRunning(cmd.Process.Pid)
	f.logger.Debug("child started",
		log.ForkID(h.ID()),
		log.Pid(cmd.Process.Pid),
		log.String("func", h.fn),
		log.String("mode", string(h.mode)),
	)
	f.events.forkStart(ForkStartEvent{ID: h.ID(), Pid: cmd.Process.Pid, Mode: h.mode, Func: h.fn})
	return cmd, nil
}

func (f *Forker) fail(h *Handle, err error) error {
	h.markFailed(err)
	f.logger.Error("fork failed",
		log.ForkID(h.ID()),
		log.String("func", h.fn),
		log.Err(err),
	)
	f.events.forkError(ForkErrorEvent{ID: h.ID(), Mode: h.mode, Func: h.fn, Kind: errorKind(err), Err: err})
	return err
}

func (f *Forker) finish(h *Handle, status ExitStatus, err error) {
	elapsed := h.markTerminated(status, err)
	if err != nil {
		f.logger.Warn("wait for child failed",
			log.ForkID(h.ID()),
			log.Pid(status.Pid),
			log.Err(err),
		)
	} else {
		f.logger.Debug("child exited",
			log.ForkID(h.ID()),
			log.Pid(status.Pid),
			log.Int("code", status.Code),
			log.Bool("completed", status.Completed()),
			log.String("signal", status.Signal),
			log.Duration("elapsed", elapsed),
		)
	}
	f.events.childExit(ChildExitEvent{ID: h.ID(), Mode: h.mode, Status: status, Elapsed: elapsed})
}

func (f *Forker) executable() (string, error) {
	if f.opts.executable != "" {
		return f.opts.executable, nil
	}
	return os.Executable()
}

// reap waits for the child. A non-zero exit is the normal outcome and is
// reported through the status, not as an error.
func reap(cmd *exec.Cmd) (ExitStatus, error) {
	err := cmd.Wait()
	status := exitStatusOf(cmd.Process.Pid, cmd.ProcessState)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return status, err
	}
	return status, nil
}

// childEnv builds the child's environment. Fork variables inherited from
// the parent are dropped so a nested fork never reruns its parent's unit.
func childEnv(base, extra []string, fork ...string) []string {
	env := make([]string, 0, len(base)+len(extra)+len(fork))
	for _, list := range [][]string{base, extra} {
		for _, kv := range list {
			if strings.HasPrefix(kv, EnvUnit+"=") || strings.HasPrefix(kv, EnvForkID+"=") {
				continue
			}
			env = append(env, kv)
		}
	}
	return append(env, fork...)
}
