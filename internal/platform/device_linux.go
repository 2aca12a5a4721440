//go:build linux

package platform

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const syncFlag = unix.O_SYNC

// blockSize asks the kernel for the size of a block device via BLKGETSIZE64.
//
//nolint:gosec // G103: ioctl needs a pointer to the result
func blockSize(f *os.File) (int64, bool) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, false
	}
	return int64(size), true //nolint:gosec // G115: device sizes fit in int64
}

// AdviseSequential hints that f will be read front to back once. Errors are
// ignored as the hint is advisory.
//
//nolint:gosec // G115: fd values are small non-negative integers
func AdviseSequential(f *os.File) {
	//nolint:errcheck // fadvise is advisory
	unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// Unmount lazily detaches the filesystem mounted at target.
func Unmount(target string) error {
	return unix.Unmount(target, unix.MNT_DETACH)
}
