//go:build !linux

package fork

import (
	"os"
	"syscall"
)

func sysProcAttr(o *options) *syscall.SysProcAttr { return nil }

func pipeCapacity(f *os.File) int { return 0 }
