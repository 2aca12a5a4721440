// Package platform wraps the OS-specific pieces needed to write raw block
// devices: synchronous opens, device sizing, read-ahead hints and unmounting.
package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupported is returned by operations that have no implementation on
// the running OS.
var ErrUnsupported = errors.New("not supported on this platform")

// IsBlockDevice reports whether fi describes a block special file.
func IsBlockDevice(fi os.FileInfo) bool {
	mode := fi.Mode()
	return mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0
}

// OpenDevice opens path for synchronous read/write access. Every write
// reaches the device before it returns, so progress tracks what is actually
// on the medium. The device is not opened exclusively.
func OpenDevice(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|syncFlag, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DeviceSize returns the capacity of f in bytes. Block devices are asked
// directly; anything else falls back to seeking to the end.
func DeviceSize(f *os.File) (int64, error) {
	if size, ok := blockSize(f); ok {
		return size, nil
	}
	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("seek %s: %w", f.Name(), err)
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek %s: %w", f.Name(), err)
	}
	if _, err := f.Seek(cur, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %s: %w", f.Name(), err)
	}
	return end, nil
}
