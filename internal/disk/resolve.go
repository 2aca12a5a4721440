// Package disk turns user-supplied device paths into validated, opened
// destinations and enumerates removable disks.
package disk

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bamsammich/burn/internal/platform"
)

// Candidate is a device argument after inspection, before it is opened.
type Candidate struct {
	Arg       string
	Canonical string
	Block     bool
	Mounts    []Mount
}

// Resolved is an opened destination device.
type Resolved struct {
	// Path is the canonical device path.
	Path string
	File *os.File
}

// ResolveOptions controls Resolve. Nil hooks fall back to the real
// filesystem and syscalls.
type ResolveOptions struct {
	// Unmount detaches filesystems mounted from a candidate instead of
	// refusing it.
	Unmount bool

	Canonicalize func(path string) (string, error)
	Stat         func(path string) (os.FileInfo, error)
	IsBlock      func(fi os.FileInfo) bool
	Unmounter    func(target string) error
	Opener       func(path string) (*os.File, error)

	Logger *slog.Logger
}

func (o *ResolveOptions) withDefaults() ResolveOptions {
	out := *o
	if out.Canonicalize == nil {
		out.Canonicalize = canonicalize
	}
	if out.Stat == nil {
		out.Stat = os.Stat
	}
	if out.IsBlock == nil {
		out.IsBlock = platform.IsBlockDevice
	}
	if out.Unmounter == nil {
		out.Unmounter = platform.Unmount
	}
	if out.Opener == nil {
		out.Opener = platform.OpenDevice
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// Resolve validates every argument and then opens them all for synchronous
// read/write. Resolution is all-or-nothing: if any candidate fails
// inspection nothing is unmounted or opened, and if an open fails the
// handles already opened are closed before the error is returned.
func Resolve(args []string, mounts []Mount, opts ResolveOptions) ([]Resolved, error) {
	o := opts.withDefaults()

	candidates := make([]Candidate, 0, len(args))
	for _, arg := range args {
		c, err := inspect(arg, mounts, &o)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	for _, c := range candidates {
		if err := unmount(c, &o); err != nil {
			return nil, err
		}
	}

	resolved := make([]Resolved, 0, len(candidates))
	for _, c := range candidates {
		f, err := o.Opener(c.Canonical)
		if err != nil {
			closeAll(resolved)
			return nil, newError(Open, c.Arg, err)
		}
		resolved = append(resolved, Resolved{Path: c.Canonical, File: f})
	}

	o.Logger.Debug("resolved destinations", "count", len(resolved))
	return resolved, nil
}

// Inspect canonicalizes arg and checks it against the mount table and the
// filesystem. It changes nothing: mounts are only recorded in the Candidate,
// and a mounted candidate is an error unless opts.Unmount is set.
func Inspect(arg string, mounts []Mount, opts ResolveOptions) (Candidate, error) {
	o := opts.withDefaults()
	return inspect(arg, mounts, &o)
}

func inspect(arg string, mounts []Mount, o *ResolveOptions) (Candidate, error) {
	canonical, err := o.Canonicalize(arg)
	if err != nil {
		return Candidate{}, newError(NoDisk, arg, err)
	}

	c := Candidate{Arg: arg, Canonical: canonical}
	for _, m := range mounts {
		// Byte prefix, so /dev/sda also claims /dev/sda1.
		if !strings.HasPrefix(m.Source, canonical) {
			continue
		}
		if !o.Unmount {
			return Candidate{}, &Error{Kind: AlreadyMounted, Disk: arg, Source: m.Source, Dest: m.Dest}
		}
		c.Mounts = append(c.Mounts, m)
	}

	fi, err := o.Stat(canonical)
	if err != nil {
		return Candidate{}, newError(Metadata, arg, err)
	}
	c.Block = o.IsBlock(fi)
	if !c.Block {
		return Candidate{}, &Error{Kind: NotABlock, Disk: arg}
	}
	return c, nil
}

// unmount detaches every filesystem recorded for c. A failure names the
// mount source.
func unmount(c Candidate, o *ResolveOptions) error {
	for _, m := range c.Mounts {
		o.Logger.Info("unmounting disk", "disk", c.Arg, "source", m.Source, "dest", m.Dest)
		if err := o.Unmounter(m.Dest); err != nil {
			return newError(UnmountCommand, m.Source, err)
		}
	}
	return nil
}

func closeAll(resolved []Resolved) {
	for _, r := range resolved {
		if err := r.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			slog.Debug("close after failed resolution", "disk", r.Path, "error", err)
		}
	}
}
