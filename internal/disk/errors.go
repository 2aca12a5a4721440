package disk

import "fmt"

// Kind classifies a disk failure. A Kind is itself an error so callers can
// match with errors.Is(err, disk.AlreadyMounted).
type Kind int

const (
	NoDisk Kind = iota + 1
	UnmountCommand
	AlreadyMounted
	NotABlock
	Metadata
	Open
	Write
	WriteEOF
	Flush
	SeekInvalid
	Seek
	Verify
	VerifyEOF
	VerifyMismatch
)

var kindNames = map[Kind]string{
	NoDisk:         "no disk",
	UnmountCommand: "unmount failed",
	AlreadyMounted: "already mounted",
	NotABlock:      "not a block device",
	Metadata:       "metadata unavailable",
	Open:           "open failed",
	Write:          "write failed",
	WriteEOF:       "write reached EOF",
	Flush:          "flush failed",
	SeekInvalid:    "seek landed at wrong offset",
	Seek:           "seek failed",
	Verify:         "verify read failed",
	VerifyEOF:      "verify reached EOF",
	VerifyMismatch: "verify mismatch",
}

func (k Kind) Error() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("disk error %d", int(k))
}

// Resolution reports whether the kind happens while resolving candidates,
// before anything is written.
func (k Kind) Resolution() bool {
	return k >= NoDisk && k <= Open
}

// Verification reports whether the kind happens during the read-back pass.
func (k Kind) Verification() bool {
	return k >= SeekInvalid && k <= VerifyMismatch
}

// Error describes a failure tied to one disk. Only the fields relevant to
// Kind are set.
type Error struct {
	Kind Kind
	Disk string

	// AlreadyMounted
	Source string
	Dest   string

	// SeekInvalid: the offset the seek landed on.
	Invalid int64

	// VerifyMismatch: byte range of the chunk that differed.
	Start int64
	End   int64

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NoDisk:
		return fmt.Sprintf("unable to find disk '%s': %v", e.Disk, e.Err)
	case UnmountCommand:
		return fmt.Sprintf("failed to unmount %s: %v", e.Disk, e.Err)
	case AlreadyMounted:
		return fmt.Sprintf("error using disk '%s': %s already mounted at %s", e.Disk, e.Source, e.Dest)
	case NotABlock:
		return fmt.Sprintf("'%s' is not a block device", e.Disk)
	case Metadata:
		return fmt.Sprintf("unable to get metadata of disk '%s': %v", e.Disk, e.Err)
	case Open:
		return fmt.Sprintf("unable to open disk '%s': %v", e.Disk, e.Err)
	case Write:
		return fmt.Sprintf("error writing disk '%s': %v", e.Disk, e.Err)
	case WriteEOF:
		return fmt.Sprintf("error writing disk '%s': reached EOF", e.Disk)
	case Flush:
		return fmt.Sprintf("unable to flush disk '%s': %v", e.Disk, e.Err)
	case SeekInvalid:
		return fmt.Sprintf("error seeking disk '%s': seeked to %d instead of 0", e.Disk, e.Invalid)
	case Seek:
		return fmt.Sprintf("error seeking disk '%s': %v", e.Disk, e.Err)
	case Verify:
		return fmt.Sprintf("error verifying disk '%s': %v", e.Disk, e.Err)
	case VerifyEOF:
		return fmt.Sprintf("error verifying disk '%s': reached EOF", e.Disk)
	case VerifyMismatch:
		return fmt.Sprintf("error verifying disk '%s': mismatch at %d:%d", e.Disk, e.Start, e.End)
	default:
		return fmt.Sprintf("disk '%s': %v", e.Disk, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(kind Kind, disk string, err error) *Error {
	return &Error{Kind: kind, Disk: disk, Err: err}
}
