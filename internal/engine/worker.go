package engine

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/bamsammich/burn/internal/disk"
)

type opKind int

const (
	opWrite opKind = iota
	opSync
	opSeek
	opVerify
)

// job is one operation for one destination. data is the shared chunk and
// must not be modified by workers.
type job struct {
	op     opKind
	data   []byte
	offset int64
}

// outcome is what a worker reports back to the coordinator.
type outcome struct {
	id  int
	n   int
	err error
}

// workerPool runs one goroutine per destination. Workers never touch the
// slot table; they only report outcomes.
type workerPool struct {
	jobs     map[int]chan job
	outcomes chan outcome
	wg       sync.WaitGroup
}

func startWorkers(slots map[int]*slot) *workerPool {
	wp := &workerPool{
		jobs:     make(map[int]chan job, len(slots)),
		outcomes: make(chan outcome, len(slots)),
	}
	for id, s := range slots {
		ch := make(chan job, 1)
		wp.jobs[id] = ch
		w := &worker{id: id, path: s.path, dst: s.dst}
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			for j := range ch {
				wp.outcomes <- w.do(j)
			}
		}()
	}
	return wp
}

// dispatch sends j to every listed worker at once and blocks until each of
// them has reported.
func (wp *workerPool) dispatch(ids []int, j job) []outcome {
	for _, id := range ids {
		wp.jobs[id] <- j
	}
	out := make([]outcome, 0, len(ids))
	for range ids {
		out = append(out, <-wp.outcomes)
	}
	return out
}

// retire stops the worker for id.
func (wp *workerPool) retire(id int) {
	if ch, ok := wp.jobs[id]; ok {
		close(ch)
		delete(wp.jobs, id)
	}
}

func (wp *workerPool) stop() {
	for id := range wp.jobs {
		wp.retire(id)
	}
	wp.wg.Wait()
}

type worker struct {
	id   int
	path string
	dst  Destination
	// verifyBuf holds what was read back from this destination.
	verifyBuf []byte
}

func (w *worker) do(j job) outcome {
	var (
		n   int
		err error
	)
	switch j.op {
	case opWrite:
		n, err = w.write(j.data)
	case opSync:
		if serr := w.dst.Sync(); serr != nil {
			err = &disk.Error{Kind: disk.Flush, Disk: w.path, Err: serr}
		}
	case opSeek:
		err = w.seek()
	case opVerify:
		n, err = w.verify(j.data, j.offset)
	}
	return outcome{id: w.id, n: n, err: err}
}

func (w *worker) write(data []byte) (int, error) {
	var written int
	for written < len(data) {
		n, err := w.dst.Write(data[written:])
		written += n
		if err != nil {
			return written, &disk.Error{Kind: disk.Write, Disk: w.path, Err: err}
		}
		if n == 0 {
			return written, &disk.Error{Kind: disk.WriteEOF, Disk: w.path}
		}
	}
	return written, nil
}

func (w *worker) seek() error {
	pos, err := w.dst.Seek(0, io.SeekStart)
	if err != nil {
		return &disk.Error{Kind: disk.Seek, Disk: w.path, Err: err}
	}
	if pos != 0 {
		return &disk.Error{Kind: disk.SeekInvalid, Disk: w.path, Invalid: pos}
	}
	return nil
}

func (w *worker) verify(want []byte, offset int64) (int, error) {
	if cap(w.verifyBuf) < len(want) {
		w.verifyBuf = make([]byte, len(want))
	}
	got := w.verifyBuf[:len(want)]

	n, err := io.ReadFull(w.dst, got)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, &disk.Error{Kind: disk.VerifyEOF, Disk: w.path}
	case err != nil:
		return n, &disk.Error{Kind: disk.Verify, Disk: w.path, Err: err}
	}
	if !bytes.Equal(got, want) {
		return n, &disk.Error{
			Kind:  disk.VerifyMismatch,
			Disk:  w.path,
			Start: offset,
			End:   offset + int64(len(want)),
		}
	}
	return n, nil
}
