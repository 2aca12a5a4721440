// Package image opens and checksums the source image being flashed.
package image

import (
	"os"

	"github.com/bamsammich/burn/internal/platform"
)

// Image is an open source image of known length.
type Image struct {
	*os.File
	Path string
	Size int64
}

// Open opens path read-only and checks that it is a regular file.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: OpenFailed, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &Error{Kind: Metadata, Err: err}
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, &Error{Kind: NotAFile}
	}
	platform.AdviseSequential(f)
	return &Image{File: f, Path: path, Size: fi.Size()}, nil
}
