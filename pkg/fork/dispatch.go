package fork

import (
	"os"

	"github.com/bft-labs/forkpipe/pkg/invoke"
	"github.com/bft-labs/forkpipe/pkg/log"
)

// IsChild reports whether the process was started by a forker and has not
// yet been dispatched.
func IsChild() bool {
	return os.Getenv(EnvUnit) != ""
}

// Dispatch runs the child unit when the process was started by a forker,
// then exits; it never returns in a child. In any other process it returns
// immediately. Call it at the top of main (or TestMain), after every unit
// that children may run has been registered.
func Dispatch() {
	enc := os.Getenv(EnvUnit)
	if enc == "" {
		return
	}
	os.Unsetenv(EnvUnit)
	os.Exit(runChild(enc, invoke.Default, log.NewZerologAdapter()))
}

// runChild decodes and invokes a child unit and returns the exit code the
// child must terminate with. The unit's result is discarded: a child talks
// to its parent only through standard output.
func runChild(enc string, reg *invoke.Registry, logger log.Logger) int {
	u, err := reg.Decode(enc)
	if err != nil {
		logger.Error("cannot decode child unit",
			log.Pid(os.Getpid()),
			log.ForkID(os.Getenv(EnvForkID)),
			log.Err(err),
		)
		return ExitFailed
	}
	if _, err := u.Invoke(); err != nil {
		logger.Error("child unit failed",
			log.Pid(os.Getpid()),
			log.ForkID(os.Getenv(EnvForkID)),
			log.String("func", u.Func().Name()),
			log.Err(err),
		)
		return ExitFailed
	}
	return ExitCompleted
}
