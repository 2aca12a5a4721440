package disk

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInfo struct {
	name string
	mode os.FileMode
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() os.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

// fakeSystem is an in-memory /dev: every listed path is a block device unless
// named in regular.
type fakeSystem struct {
	t         *testing.T
	dir       string
	regular   map[string]bool
	missing   map[string]bool
	failOpen  map[string]error
	opened    []*os.File
	unmounted []string
	unmountFn func(string) error
}

func newFakeSystem(t *testing.T) *fakeSystem {
	return &fakeSystem{
		t:        t,
		dir:      t.TempDir(),
		regular:  map[string]bool{},
		missing:  map[string]bool{},
		failOpen: map[string]error{},
	}
}

func (s *fakeSystem) options(unmount bool) ResolveOptions {
	return ResolveOptions{
		Unmount: unmount,
		Canonicalize: func(p string) (string, error) {
			if s.missing[p] {
				return "", os.ErrNotExist
			}
			return p, nil
		},
		Stat: func(p string) (os.FileInfo, error) {
			if s.regular[p] {
				return fakeInfo{name: p}, nil
			}
			return fakeInfo{name: p, mode: os.ModeDevice}, nil
		},
		Unmounter: func(target string) error {
			s.unmounted = append(s.unmounted, target)
			if s.unmountFn != nil {
				return s.unmountFn(target)
			}
			return nil
		},
		Opener: func(p string) (*os.File, error) {
			if err := s.failOpen[p]; err != nil {
				return nil, err
			}
			f, err := os.Create(filepath.Join(s.dir, filepath.Base(p)))
			require.NoError(s.t, err)
			s.opened = append(s.opened, f)
			return f, nil
		},
	}
}

func TestResolveAllValid(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	got, err := Resolve([]string{"/dev/sdb", "/dev/sdc"}, nil, sys.options(false))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/dev/sdb", got[0].Path)
	assert.Equal(t, "/dev/sdc", got[1].Path)
	for _, r := range got {
		require.NoError(t, r.File.Close())
	}
}

func TestResolveMountedCandidateOpensNothing(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	mounts := []Mount{
		{Source: "/dev/nvme0n1p2", Dest: "/", FSType: "ext4"},
		{Source: "/dev/sda1", Dest: "/boot", FSType: "vfat"},
	}

	got, err := Resolve([]string{"/dev/sdb", "/dev/sdc", "/dev/sdd", "/dev/sda1"}, mounts, sys.options(false))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Empty(t, sys.opened, "no destination may be opened")
	assert.ErrorIs(t, err, AlreadyMounted)

	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "/dev/sda1", derr.Disk)
	assert.Equal(t, "/dev/sda1", derr.Source)
	assert.Equal(t, "/boot", derr.Dest)
	assert.Equal(t, "error using disk '/dev/sda1': /dev/sda1 already mounted at /boot", err.Error())
}

func TestResolveWholeDiskMatchesPartitionMounts(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	mounts := []Mount{{Source: "/dev/sda2", Dest: "/home"}}

	_, err := Resolve([]string{"/dev/sda"}, mounts, sys.options(false))
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, AlreadyMounted, derr.Kind)
	assert.Equal(t, "/dev/sda2", derr.Source)
}

func TestResolveUnmountsWhenRequested(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	mounts := []Mount{
		{Source: "/dev/sdb1", Dest: "/media/usb"},
		{Source: "/dev/sdb2", Dest: "/media/usb2"},
	}

	got, err := Resolve([]string{"/dev/sdb"}, mounts, sys.options(true))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"/media/usb", "/media/usb2"}, sys.unmounted)
	require.NoError(t, got[0].File.Close())
}

func TestResolveUnmountFailure(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	sys.unmountFn = func(string) error { return errors.New("device busy") }
	mounts := []Mount{{Source: "/dev/sdb1", Dest: "/media/usb"}}

	_, err := Resolve([]string{"/dev/sdb"}, mounts, sys.options(true))
	assert.ErrorIs(t, err, UnmountCommand)
	assert.EqualError(t, err, "failed to unmount /dev/sdb1: device busy")
	assert.Empty(t, sys.opened)
}

func TestResolveInvalidCandidateUnmountsNothing(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	sys.missing["/dev/nope"] = true
	sys.regular["/tmp/disk.img"] = true
	mounts := []Mount{{Source: "/dev/sdb1", Dest: "/media/usb"}}

	for _, bad := range []string{"/dev/nope", "/tmp/disk.img"} {
		_, err := Resolve([]string{"/dev/sdb", bad}, mounts, sys.options(true))
		require.Error(t, err, bad)
	}
	assert.Empty(t, sys.unmounted, "nothing is detached until every candidate passes")
	assert.Empty(t, sys.opened)
}

func TestInspectRecordsMountsWithoutDetaching(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	mounts := []Mount{{Source: "/dev/sdb1", Dest: "/media/usb"}}

	c, err := Inspect("/dev/sdb", mounts, sys.options(true))
	require.NoError(t, err)
	assert.Equal(t, mounts, c.Mounts)
	assert.Empty(t, sys.unmounted)
}

func TestResolveRejectsNonBlock(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	sys.regular["/tmp/disk.img"] = true

	_, err := Resolve([]string{"/dev/sdb", "/tmp/disk.img"}, nil, sys.options(false))
	assert.ErrorIs(t, err, NotABlock)
	assert.EqualError(t, err, "'/tmp/disk.img' is not a block device")
	assert.Empty(t, sys.opened)
}

func TestResolveMissingDisk(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	sys.missing["/dev/sdz"] = true

	_, err := Resolve([]string{"/dev/sdb", "/dev/sdz"}, nil, sys.options(false))
	assert.ErrorIs(t, err, NoDisk)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, sys.opened)
}

func TestResolveOpenFailureClosesEarlierHandles(t *testing.T) {
	t.Parallel()

	sys := newFakeSystem(t)
	sys.failOpen["/dev/sdd"] = os.ErrPermission

	got, err := Resolve([]string{"/dev/sdb", "/dev/sdc", "/dev/sdd"}, nil, sys.options(false))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, Open)
	assert.ErrorIs(t, err, os.ErrPermission)

	require.Len(t, sys.opened, 2)
	for _, f := range sys.opened {
		_, werr := f.Write([]byte{0})
		assert.ErrorIs(t, werr, os.ErrClosed)
	}
}

func TestResolveDefaultCanonicalizeFollowsSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "sdb")
	require.NoError(t, os.WriteFile(target, nil, 0o600))
	link := filepath.Join(dir, "by-id-usb")
	require.NoError(t, os.Symlink(target, link))

	c, err := Inspect(link, nil, ResolveOptions{IsBlock: func(os.FileInfo) bool { return true }})
	require.NoError(t, err)
	assert.Equal(t, link, c.Arg)
	resolvedTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, resolvedTarget, c.Canonical)
	assert.True(t, c.Block)
}

func TestResolveRegularFileIsNotBlock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "image.iso")
	require.NoError(t, os.WriteFile(path, []byte("iso"), 0o600))

	_, err := Resolve([]string{path}, nil, ResolveOptions{})
	assert.ErrorIs(t, err, NotABlock)
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	io := errors.New("input/output error")
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: NoDisk, Disk: "/dev/sdx", Err: os.ErrNotExist}, "unable to find disk '/dev/sdx': file does not exist"},
		{&Error{Kind: Metadata, Disk: "/dev/sdb", Err: io}, "unable to get metadata of disk '/dev/sdb': input/output error"},
		{&Error{Kind: Open, Disk: "/dev/sdb", Err: io}, "unable to open disk '/dev/sdb': input/output error"},
		{&Error{Kind: Write, Disk: "/dev/sdb", Err: io}, "error writing disk '/dev/sdb': input/output error"},
		{&Error{Kind: WriteEOF, Disk: "/dev/sdb"}, "error writing disk '/dev/sdb': reached EOF"},
		{&Error{Kind: Flush, Disk: "/dev/sdb", Err: io}, "unable to flush disk '/dev/sdb': input/output error"},
		{&Error{Kind: SeekInvalid, Disk: "/dev/sdb", Invalid: 512}, "error seeking disk '/dev/sdb': seeked to 512 instead of 0"},
		{&Error{Kind: Seek, Disk: "/dev/sdb", Err: io}, "error seeking disk '/dev/sdb': input/output error"},
		{&Error{Kind: Verify, Disk: "/dev/sdb", Err: io}, "error verifying disk '/dev/sdb': input/output error"},
		{&Error{Kind: VerifyEOF, Disk: "/dev/sdb"}, "error verifying disk '/dev/sdb': reached EOF"},
		{&Error{Kind: VerifyMismatch, Disk: "/dev/sdb", Start: 4096, End: 8192}, "error verifying disk '/dev/sdb': mismatch at 4096:8192"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Kind.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.err.Kind)
		})
	}
}

func TestKindClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, AlreadyMounted.Resolution())
	assert.False(t, Write.Resolution())
	assert.True(t, VerifyMismatch.Verification())
	assert.True(t, SeekInvalid.Verification())
	assert.False(t, Flush.Verification())
}
