package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errIO = errors.New("input/output error")

// memDevice is an in-memory block device with injectable faults.
type memDevice struct {
	mu   sync.Mutex
	data []byte
	pos  int64

	failWriteAt int64 // writes reaching this offset fail; -1 disables
	zeroWrites  bool
	syncErr     error
	seekErr     error
	seekLands   int64 // non-zero: Seek reports this position
	readLimit   int64 // non-zero: reads past this offset hit EOF
	readErr     error
	corruptAt   int64 // flipped on the first Seek; -1 disables

	syncs int
}

func newMemDevice(size int) *memDevice {
	return &memDevice{data: make([]byte, size), failWriteAt: -1, corruptAt: -1}
}

func (d *memDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.zeroWrites {
		return 0, nil
	}
	if d.failWriteAt >= 0 && d.pos+int64(len(p)) > d.failWriteAt {
		n := copy(d.data[d.pos:d.failWriteAt], p)
		d.pos += int64(n)
		return n, errIO
	}
	if d.pos >= int64(len(d.data)) {
		return 0, io.ErrShortWrite
	}
	n := copy(d.data[d.pos:], p)
	d.pos += int64(n)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (d *memDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return 0, d.readErr
	}
	limit := int64(len(d.data))
	if d.readLimit > 0 && d.readLimit < limit {
		limit = d.readLimit
	}
	if d.pos >= limit {
		return 0, io.EOF
	}
	n := copy(p, d.data[d.pos:limit])
	d.pos += int64(n)
	return n, nil
}

func (d *memDevice) Seek(offset int64, whence int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seekErr != nil {
		return 0, d.seekErr
	}
	if d.corruptAt >= 0 {
		d.data[d.corruptAt] ^= 0xff
		d.corruptAt = -1
	}
	switch whence {
	case io.SeekStart:
		d.pos = offset
	case io.SeekCurrent:
		d.pos += offset
	case io.SeekEnd:
		d.pos = int64(len(d.data)) + offset
	}
	if d.seekLands != 0 {
		return d.seekLands, nil
	}
	return d.pos, nil
}

func (d *memDevice) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncs++
	return d.syncErr
}

func (d *memDevice) bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.data...)
}

type call struct {
	op    string // message, set, finish
	kind  string
	text  string
	value uint64
}

// recorder is a Progress that keeps every call it receives.
type recorder struct {
	mu          sync.Mutex
	calls       []call
	finishes    int
	afterFinish int
}

func (r *recorder) record(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finishes > 0 {
		r.afterFinish++
	}
	r.calls = append(r.calls, c)
	if c.op == "finish" {
		r.finishes++
	}
}

func (r *recorder) Message(kind, text string) { r.record(call{op: "message", kind: kind, text: text}) }
func (r *recorder) Set(v uint64)              { r.record(call{op: "set", value: v}) }
func (r *recorder) Finish()                   { r.record(call{op: "finish"}) }

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) messages(kind string) []string {
	var out []string
	for _, c := range r.snapshot() {
		if c.op == "message" && c.kind == kind {
			out = append(out, c.text)
		}
	}
	return out
}

// phases splits the Set values at every F and S message, so each phase can
// be checked for monotonicity on its own.
func (r *recorder) phases() [][]uint64 {
	phases := [][]uint64{nil}
	for _, c := range r.snapshot() {
		switch {
		case c.op == "message" && (c.kind == KindFlush || c.kind == KindSeek):
			phases = append(phases, nil)
		case c.op == "set":
			phases[len(phases)-1] = append(phases[len(phases)-1], c.value)
		}
	}
	return phases
}

func (r *recorder) lastSet() uint64 {
	calls := r.snapshot()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].op == "set" {
			return calls[i].value
		}
	}
	return 0
}

// assertFinishedOnce checks the exactly-once, finish-last contract.
func assertFinishedOnce(t *testing.T, r *recorder) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, 1, r.finishes, "finish calls")
	assert.Zero(t, r.afterFinish, "calls after finish")
	if assert.NotEmpty(t, r.calls) {
		assert.Equal(t, "finish", r.calls[len(r.calls)-1].op)
	}
}

func assertMonotonic(t *testing.T, r *recorder) {
	t.Helper()
	for i, phase := range r.phases() {
		for j := 1; j < len(phase); j++ {
			assert.GreaterOrEqual(t, phase[j], phase[j-1], "phase %d regressed at set %d", i, j)
		}
	}
}

// countingReader counts every byte read from the source.
type countingReader struct {
	*bytes.Reader
	read int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	c.read += int64(n)
	return n, err
}

// failingReader serves data until failAt, then returns err.
type failingReader struct {
	*bytes.Reader
	failAt int64
	err    error
}

func (f *failingReader) Read(p []byte) (int, error) {
	pos := f.Size() - int64(f.Len())
	if pos >= f.failAt {
		return 0, f.err
	}
	if rem := f.failAt - pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	return f.Reader.Read(p)
}

// seekFailReader reads normally but cannot rewind.
type seekFailReader struct {
	*bytes.Reader
}

func (seekFailReader) Seek(int64, int) (int64, error) { return 0, errIO }

func pattern(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

type harness struct {
	task    *Task
	devices []*memDevice
	obs     []*recorder
}

func newHarness(t *testing.T, src io.ReadSeeker, size int64, n int, cfg Config) *harness {
	t.Helper()
	h := &harness{task: New(src, size, cfg)}
	for i := range n {
		d := newMemDevice(int(size))
		r := &recorder{}
		id := h.task.Subscribe(d, fmt.Sprintf("/dev/sd%c", 'b'+i), r)
		require.Equal(t, i, id)
		h.devices = append(h.devices, d)
		h.obs = append(h.obs, r)
	}
	return h
}

// mismatchRange extracts x:y from a VerifyMismatch message.
func mismatchRange(t *testing.T, text string) (int64, int64) {
	t.Helper()
	i := strings.LastIndex(text, "mismatch at ")
	require.GreaterOrEqual(t, i, 0, "not a mismatch: %s", text)
	var x, y int64
	_, err := fmt.Sscanf(text[i:], "mismatch at %d:%d", &x, &y)
	require.NoError(t, err)
	return x, y
}

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// openTempDevice stands in for a block device with a sized regular file.
func openTempDevice(t *testing.T, dir, name string, size int) *os.File {
	t.Helper()
	path := writeTempFile(t, dir, name, make([]byte, size))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func readTempFile(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return data
}
