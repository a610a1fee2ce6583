package fork

import (
	"io"
	"os"

	"github.com/bft-labs/forkpipe/pkg/log"
)

// DefaultChunkSize is the size of the buffer the drain loop reads into.
const DefaultChunkSize = 1024

// Option configures a Forker or PipedForker.
type Option func(*options)

type options struct {
	logger            log.Logger
	events            EventHandler
	chunkSize         int
	stdout            io.Writer
	stderr            io.Writer
	env               []string
	executable        string
	parentDeathSignal os.Signal
}

func defaultOptions() options {
	return options{
		logger:    log.Discard,
		chunkSize: DefaultChunkSize,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for fork events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.events = handler
	}
}

// WithChunkSize sets the drain buffer size of a PipedForker.
// Non-positive values keep the default.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithStdout sets where children started by Forker write their standard
// output. Defaults to the parent's stdout. PipedForker ignores it.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithStderr sets where children write their standard error. Defaults to
// the parent's stderr; nil discards it.
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}

// WithEnv adds KEY=value entries to the children's environment.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

// WithExecutable sets the binary children are started from. It must call
// Dispatch on startup. Defaults to os.Executable().
func WithExecutable(path string) Option {
	return func(o *options) {
		o.executable = path
	}
}

// WithParentDeathSignal asks the kernel to send sig to a child when the
// parent dies. Only honoured on Linux.
func WithParentDeathSignal(sig os.Signal) Option {
	return func(o *options) {
		o.parentDeathSignal = sig
	}
}
