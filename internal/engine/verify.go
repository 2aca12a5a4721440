package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/bamsammich/burn/internal/image"
)

// verify rewinds the source and every surviving destination, then reads
// them back in lockstep and compares chunk by chunk. Progress restarts at
// zero for this phase.
func (t *Task) verify(ctx context.Context, buf []byte) error {
	ids := t.liveIDs()
	for _, id := range ids {
		s := t.slots[id]
		t.resetProgress(s)
		s.progress.Message(KindSeek, "")
	}

	if _, err := t.src.Seek(0, io.SeekStart); err != nil {
		srcErr := &image.Error{Kind: image.Read, Err: err}
		t.log.Error("source seek failed", "error", err)
		t.abort(fmt.Sprintf("error reading from source: %v", srcErr))
		return fmt.Errorf("error reading from source: %w", srcErr)
	}
	for _, o := range t.workers.dispatch(ids, job{op: opSeek}) {
		if o.err != nil {
			t.retire(t.slots[o.id], o.err)
		}
	}

	for _, id := range t.liveIDs() {
		s := t.slots[id]
		t.resetProgress(s)
		s.progress.Message(KindVerify, "")
	}

	reader := throttle(ctx, t.src, t.cfg.Limiter)

	var offset int64
	for {
		if len(t.slots) == 0 {
			return ErrNoWriters
		}
		if offset >= t.size {
			return nil
		}
		if t.cancelled(ctx) {
			return t.kill()
		}

		chunk, err := t.readChunk(ctx, reader, buf, offset)
		if err != nil {
			return err
		}

		for _, o := range t.workers.dispatch(t.liveIDs(), job{op: opVerify, data: chunk, offset: offset}) {
			s := t.slots[o.id]
			if o.err != nil {
				t.retire(s, o.err)
				continue
			}
			s.written += uint64(o.n) //nolint:gosec // G115: n is non-negative
		}
		offset += int64(len(chunk))
		t.pushProgress()
	}
}
