//go:build !linux

package platform

import "syscall"

// SetPdeathsig is a no-op on non-Linux platforms (Pdeathsig is Linux-only).
func SetPdeathsig(_ *syscall.SysProcAttr) {}
