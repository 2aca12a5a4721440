package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/bamsammich/burn/internal/image"
)

// slot is one subscribed destination. Slots are owned by the coordinator;
// writer goroutines only ever see the slot's id and destination.
type slot struct {
	id       int
	path     string
	dst      Destination
	progress Progress
	written  uint64
	lastSet  uint64
	sent     bool
}

// Task is a single flashing session.
type Task struct {
	src  io.ReadSeeker
	size int64
	cfg  Config
	log  *slog.Logger

	slots    map[int]*slot
	nextSlot int
	workers  *workerPool

	state    atomic.Int32
	consumed atomic.Bool
}

// New creates a Task that copies size bytes from src.
func New(src io.ReadSeeker, size int64, cfg Config) *Task {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Task{
		src:   src,
		size:  size,
		cfg:   cfg,
		log:   cfg.Logger,
		slots: make(map[int]*slot),
	}
}

// Subscribe registers dst under a fresh slot and returns the slot id. No I/O
// happens until Process. Subscribe must not be called once Process has
// started.
func (t *Task) Subscribe(dst Destination, path string, p Progress) int {
	if t.consumed.Load() {
		panic("engine: Subscribe called after Process")
	}
	id := t.nextSlot
	t.nextSlot++
	t.slots[id] = &slot{id: id, path: path, dst: dst, progress: p}
	return id
}

// State returns the current phase. It is safe to call from any goroutine.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Size is the number of source bytes the task copies.
func (t *Task) Size() int64 { return t.size }

func (t *Task) setState(s State) {
	prev := State(t.state.Swap(int32(s)))
	if prev != s {
		t.log.Debug("task state", "from", prev, "to", s, "live", len(t.slots))
	}
}

// Process copies the source to every destination, flushes them, and
// verifies them when configured. Every subscribed Progress receives exactly
// one Finish. Per-destination failures are reported through their Progress
// only; the returned error is non-nil only when the session itself failed:
// the source could not be read, the session was cancelled (ErrKilled), or
// every destination was retired (ErrNoWriters).
func (t *Task) Process(ctx context.Context, buf []byte) error {
	if !t.consumed.CompareAndSwap(false, true) {
		return ErrConsumed
	}
	if len(buf) == 0 {
		buf = make([]byte, DefaultBufferSize)
	}

	total := len(t.slots)
	start := time.Now()
	t.log.Info("flash started", "size", t.size, "devices", total, "verify", t.cfg.Verify, "buffer", len(buf))

	t.workers = startWorkers(t.slots)
	defer t.workers.stop()

	err := t.run(ctx, buf)

	// Whatever is still live made it through every phase.
	for _, id := range t.liveIDs() {
		s := t.slots[id]
		s.progress.Finish()
		delete(t.slots, id)
		t.workers.retire(id)
	}

	switch {
	case err == nil:
		t.setState(Done)
	case errors.Is(err, ErrKilled):
		t.setState(Killed)
	default:
		t.setState(Failed)
	}
	t.log.Info("flash finished", "state", t.State(), "devices", total,
		"elapsed", time.Since(start).Round(time.Millisecond), "error", err)
	return err
}

func (t *Task) run(ctx context.Context, buf []byte) error {
	if len(t.slots) == 0 {
		return ErrNoWriters
	}

	t.setState(Copying)
	if err := t.copy(ctx, buf); err != nil {
		return err
	}

	t.setState(Flushing)
	t.flush()
	if len(t.slots) == 0 {
		return ErrNoWriters
	}

	if t.cfg.Verify {
		t.setState(Verifying)
		return t.verify(ctx, buf)
	}
	return nil
}

func (t *Task) copy(ctx context.Context, buf []byte) error {
	reader := throttle(ctx, t.src, t.cfg.Limiter)

	lastPush := time.Now()
	var offset int64
	for {
		if len(t.slots) == 0 {
			return ErrNoWriters
		}
		if offset >= t.size {
			break
		}
		if t.cancelled(ctx) {
			return t.kill()
		}

		chunk, err := t.readChunk(ctx, reader, buf, offset)
		if err != nil {
			return err
		}

		for _, o := range t.workers.dispatch(t.liveIDs(), job{op: opWrite, data: chunk}) {
			s := t.slots[o.id]
			if o.err != nil {
				t.retire(s, o.err)
				continue
			}
			s.written += uint64(o.n) //nolint:gosec // G115: n is non-negative
		}
		offset += int64(len(chunk))

		if now := time.Now(); now.Sub(lastPush) >= t.cfg.Interval {
			lastPush = now
			t.pushProgress()
		}
	}

	t.pushProgress()
	return nil
}

// readChunk fills the front of buf with the next source chunk. Any failure
// is fatal to the session and is reported to every live destination.
func (t *Task) readChunk(ctx context.Context, r io.Reader, buf []byte, offset int64) ([]byte, error) {
	n := int64(len(buf))
	if remaining := t.size - offset; remaining < n {
		n = remaining
	}
	chunk := buf[:n]
	read, err := io.ReadFull(r, chunk)
	if err == nil {
		return chunk, nil
	}
	if ctx.Err() != nil {
		return nil, t.kill()
	}

	var srcErr *image.Error
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		srcErr = &image.Error{Kind: image.EOF}
	} else {
		srcErr = &image.Error{Kind: image.Read, Err: err}
	}
	t.log.Error("source read failed", "offset", offset+int64(read), "error", srcErr)
	t.abort(fmt.Sprintf("error reading from source: %v", srcErr))
	return nil, fmt.Errorf("error reading from source: %w", srcErr)
}

func (t *Task) flush() {
	ids := t.liveIDs()
	for _, id := range ids {
		t.slots[id].progress.Message(KindFlush, "")
	}
	for _, o := range t.workers.dispatch(ids, job{op: opSync}) {
		if o.err != nil {
			t.retire(t.slots[o.id], o.err)
		}
	}
}

func (t *Task) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return t.cfg.Cancel != nil && t.cfg.Cancel()
}

// kill finishes every live destination as killed.
func (t *Task) kill() error {
	t.log.Warn("flash cancelled", "live", len(t.slots))
	t.abort(ErrKilled.Error())
	return ErrKilled
}

// abort reports text as an error to every live destination and finishes
// them all.
func (t *Task) abort(text string) {
	for _, id := range t.liveIDs() {
		s := t.slots[id]
		s.progress.Message(KindError, text)
		s.progress.Finish()
		delete(t.slots, id)
		t.workers.retire(id)
	}
}

// retire removes a failed destination from the session.
func (t *Task) retire(s *slot, err error) {
	t.log.Warn("device retired", "disk", s.path, "phase", t.State(), "error", err)
	s.progress.Message(KindError, err.Error())
	s.progress.Finish()
	delete(t.slots, s.id)
	t.workers.retire(s.id)
}

func (t *Task) pushProgress() {
	for _, id := range t.liveIDs() {
		t.setProgress(t.slots[id], t.slots[id].written)
	}
}

// setProgress forwards a value to the observer unless it would repeat or
// regress the last value of the current phase.
func (t *Task) setProgress(s *slot, v uint64) {
	if s.sent && v <= s.lastSet {
		return
	}
	s.lastSet = v
	s.sent = true
	s.progress.Set(v)
}

// resetProgress starts a new phase at zero.
func (t *Task) resetProgress(s *slot) {
	s.written = 0
	s.lastSet = 0
	s.sent = true
	s.progress.Set(0)
}

// liveIDs returns the live slot ids in subscription order.
func (t *Task) liveIDs() []int {
	ids := make([]int, 0, len(t.slots))
	for id := range t.slots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
