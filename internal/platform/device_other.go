//go:build !linux

package platform

import "os"

const syncFlag = os.O_SYNC

func blockSize(_ *os.File) (int64, bool) { return 0, false }

// AdviseSequential is a no-op on non-Linux platforms.
func AdviseSequential(_ *os.File) {}

// Unmount is only implemented on Linux.
func Unmount(_ string) error { return ErrUnsupported }
