//go:build !unix

package cliconfig

import (
	"fmt"
	"os"
)

func parseSignal(name string) (os.Signal, error) {
	if name == "" {
		return nil, nil
	}
	return nil, fmt.Errorf("signals are not supported on this platform")
}
