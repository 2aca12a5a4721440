// Package engine flashes one source image onto many destinations at once.
//
// A Task reads each chunk of the source exactly once into a shared buffer
// and fans it out to one writer goroutine per destination, waiting for all
// of them before reading the next chunk. A destination that fails is retired
// for the rest of the session while the others carry on.
package engine

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBufferSize is the chunk size used when Process is given no buffer.
	DefaultBufferSize = 4 << 20

	// DefaultInterval is how often copy progress is pushed to observers.
	DefaultInterval = 125 * time.Millisecond
)

// Message kinds passed to Progress.Message.
const (
	KindError  = "E"
	KindFlush  = "F"
	KindSeek   = "S"
	KindVerify = "V"
	KindWrite  = "W"
)

var (
	// ErrKilled is returned by Process when the session was cancelled.
	ErrKilled = errors.New("writing to the device was killed")

	// ErrNoWriters is returned by Process when every destination has been
	// retired.
	ErrNoWriters = errors.New("no writers left")

	// ErrConsumed is returned by a second call to Process.
	ErrConsumed = errors.New("task already processed")
)

// Progress observes one destination. Set receives the absolute number of
// bytes handled in the current phase. Finish is called exactly once per
// subscribed destination and is always the last call it receives.
type Progress interface {
	Message(kind, text string)
	Set(written uint64)
	Finish()
}

// Destination is a writable, seekable device handle. *os.File satisfies it.
type Destination interface {
	io.ReadWriteSeeker
	Sync() error
}

// Config controls a Task.
type Config struct {
	// Verify reads every surviving destination back and compares it with
	// the source after the copy.
	Verify bool

	// Cancel is polled once per chunk. Returning true kills the session.
	Cancel func() bool

	// Interval between copy progress pushes. Defaults to DefaultInterval.
	Interval time.Duration

	// Limiter caps the source read rate when set.
	Limiter *rate.Limiter

	Logger *slog.Logger
}
