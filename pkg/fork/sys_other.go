//go:build !unix

package fork

import "os"

func signalOf(ps *os.ProcessState) string { return "" }
