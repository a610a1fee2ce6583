//go:build unix

package fork

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalOf names the signal that terminated the process, as "SIGKILL".
func signalOf(ps *os.ProcessState) string {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	if name := unix.SignalName(ws.Signal()); name != "" {
		return name
	}
	return ws.Signal().String()
}
