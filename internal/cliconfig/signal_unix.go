//go:build unix

package cliconfig

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// parseSignal accepts names like "SIGTERM" or "term". An empty name means
// no signal.
func parseSignal(name string) (os.Signal, error) {
	if name == "" {
		return nil, nil
	}
	name = strings.ToUpper(name)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return nil, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}
