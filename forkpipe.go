// Package forkpipe runs units of work in child processes.
//
// A child is the running binary re-executed with the unit to run in its
// environment, so every binary that forks must call Dispatch before doing
// anything else:
//
//	var greet = forkpipe.Register("greet", func(name string) {
//	    fmt.Println("hello", name)
//	})
//
//	func main() {
//	    forkpipe.Dispatch()
//
//	    p, err := forkpipe.NewPiped()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := p.Capture(greet.Bind("gopher"))
//	    ...
//	}
//
// The packages under pkg/ can be used directly; this package only gathers
// the common entry points.
package forkpipe

import (
	"fmt"

	"github.com/bft-labs/forkpipe/pkg/fork"
	"github.com/bft-labs/forkpipe/pkg/invoke"
	"github.com/bft-labs/forkpipe/pkg/log"
	"github.com/bft-labs/forkpipe/pkg/metrics"
)

// Version is the forkpipe release.
const Version = "1.0.0"

type (
	// Func is a callable that can be bound into units.
	Func = invoke.Func

	// Unit is a callable with its arguments bound.
	Unit = invoke.Unit

	// Forker runs units in detached or concurrent children.
	Forker = fork.Forker

	// PipedForker runs units in children and captures their output.
	PipedForker = fork.PipedForker

	// Handle tracks a detached child.
	Handle = fork.Handle

	// ExitStatus is a reaped child's status.
	ExitStatus = fork.ExitStatus

	// Option configures a forker.
	Option = fork.Option
)

// Register makes fn runnable in children under name. Call it from a
// package-level var or init so children know the same names.
func Register(name string, fn interface{}) *Func {
	return invoke.Register(name, fn)
}

// Dispatch runs the pending child unit and exits if the process is a
// child; otherwise it returns immediately.
func Dispatch() {
	fork.Dispatch()
}

// NewForker creates a Forker after checking module compatibility.
func NewForker(opts ...Option) (*Forker, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	return fork.New(opts...), nil
}

// NewPiped creates a PipedForker after checking module compatibility.
func NewPiped(opts ...Option) (*PipedForker, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	return fork.NewPiped(opts...), nil
}

// ModuleVersions returns the version of every sub-module.
func ModuleVersions() map[string]string {
	return map[string]string{
		"forkpipe": Version,
		"fork":     fork.Version,
		"invoke":   invoke.Version,
		"log":      log.Version,
		"metrics":  metrics.Version,
	}
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"fork":    {fork.Version, fork.MinCompatibleVersion},
		"invoke":  {invoke.Version, invoke.MinCompatibleVersion},
		"log":     {log.Version, log.MinCompatibleVersion},
		"metrics": {metrics.Version, metrics.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion, both in
// "major.minor.patch" form.
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
