package fork

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func sysProcAttr(o *options) *syscall.SysProcAttr {
	sig, ok := o.parentDeathSignal.(syscall.Signal)
	if !ok || sig == 0 {
		return nil
	}
	return &syscall.SysProcAttr{Pdeathsig: sig}
}

// pipeCapacity reports the kernel buffer size of a pipe, or 0 if unknown.
// SyscallConn keeps the descriptor in non-blocking mode.
func pipeCapacity(f *os.File) int {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0
	}
	size := 0
	_ = rc.Control(func(fd uintptr) {
		if n, err := unix.FcntlInt(fd, unix.F_GETPIPE_SZ, 0); err == nil {
			size = n
		}
	})
	return size
}
