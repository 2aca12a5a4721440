package image

import "fmt"

// Kind classifies a source image failure.
type Kind int

const (
	OpenFailed Kind = iota + 1
	Metadata
	NotAFile
	Read
	EOF
)

func (k Kind) Error() string {
	switch k {
	case OpenFailed:
		return "image could not be opened"
	case Metadata:
		return "unable to get image metadata"
	case NotAFile:
		return "image was not a file"
	case Read:
		return "unable to read image"
	case EOF:
		return "reached EOF prematurely"
	default:
		return fmt.Sprintf("image error %d", int(k))
	}
}

// Error is a failure of the source image. Every Kind except NotAFile and
// EOF carries the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}
