package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/burn/internal/image"
)

func TestVerifyCleanRoundTrip(t *testing.T) {
	t.Parallel()

	data := pattern(16*chunk + 123)
	src := &countingReader{Reader: bytes.NewReader(data)}
	h := newHarness(t, src, int64(len(data)), 3, Config{Verify: true})

	require.NoError(t, h.task.Process(context.Background(), make([]byte, chunk)))
	assert.Equal(t, 2*int64(len(data)), src.read, "one pass to copy, one to verify")
	for _, r := range h.obs {
		assertFinishedOnce(t, r)
		assert.Empty(t, r.messages(KindError))
		assert.Equal(t, []string{""}, r.messages(KindSeek))
		assert.Equal(t, []string{""}, r.messages(KindVerify))
	}
}

func TestVerifySingleFlippedByte(t *testing.T) {
	t.Parallel()

	data := pattern(16*chunk + 123)
	for _, off := range []int64{0, 1, chunk - 1, chunk, 7*chunk + 300, int64(len(data)) - 1} {
		h := newHarness(t, bytes.NewReader(data), int64(len(data)), 3, Config{Verify: true})
		h.devices[1].corruptAt = off

		require.NoError(t, h.task.Process(context.Background(), make([]byte, chunk)))

		errs := h.obs[1].messages(KindError)
		require.Len(t, errs, 1, "offset %d", off)
		x, y := mismatchRange(t, errs[0])
		assert.LessOrEqual(t, x, off)
		assert.Greater(t, y, off)
		assert.Equal(t, "error verifying disk '/dev/sdc'", errs[0][:len("error verifying disk '/dev/sdc'")])

		for i, r := range h.obs {
			assertFinishedOnce(t, r)
			if i != 1 {
				assert.Empty(t, r.messages(KindError), "offset %d device %d", off, i)
			}
		}
	}
}

func TestVerifySeekFailures(t *testing.T) {
	t.Parallel()

	data := pattern(4 * chunk)
	h := newHarness(t, bytes.NewReader(data), int64(len(data)), 3, Config{Verify: true})
	h.devices[0].seekErr = errIO
	h.devices[1].seekLands = 7

	require.NoError(t, h.task.Process(context.Background(), make([]byte, chunk)))

	assert.Equal(t, []string{"error seeking disk '/dev/sdb': input/output error"}, h.obs[0].messages(KindError))
	assert.Equal(t, []string{"error seeking disk '/dev/sdc': seeked to 7 instead of 0"}, h.obs[1].messages(KindError))
	assert.Empty(t, h.obs[0].messages(KindVerify))
	assert.Empty(t, h.obs[2].messages(KindError))
	assert.Equal(t, uint64(len(data)), h.obs[2].lastSet())
	for _, r := range h.obs {
		assertFinishedOnce(t, r)
	}
}

func TestVerifyDestinationShort(t *testing.T) {
	t.Parallel()

	data := pattern(4 * chunk)
	h := newHarness(t, bytes.NewReader(data), int64(len(data)), 2, Config{Verify: true})
	h.devices[0].readLimit = 2*chunk + 5

	require.NoError(t, h.task.Process(context.Background(), make([]byte, chunk)))
	assert.Equal(t, []string{"error verifying disk '/dev/sdb': reached EOF"}, h.obs[0].messages(KindError))
	assert.Empty(t, h.obs[1].messages(KindError))
}

func TestVerifyReadError(t *testing.T) {
	t.Parallel()

	data := pattern(2 * chunk)
	h := newHarness(t, bytes.NewReader(data), int64(len(data)), 2, Config{Verify: true})
	h.devices[1].readErr = errIO

	require.NoError(t, h.task.Process(context.Background(), make([]byte, chunk)))
	assert.Equal(t, []string{"error verifying disk '/dev/sdc': input/output error"}, h.obs[1].messages(KindError))
	assertFinishedOnce(t, h.obs[1])
}

func TestVerifyEveryDeviceMismatches(t *testing.T) {
	t.Parallel()

	data := pattern(3 * chunk)
	h := newHarness(t, bytes.NewReader(data), int64(len(data)), 2, Config{Verify: true})
	for _, d := range h.devices {
		d.corruptAt = 10
	}

	assert.ErrorIs(t, h.task.Process(context.Background(), make([]byte, chunk)), ErrNoWriters)
	for _, r := range h.obs {
		assertFinishedOnce(t, r)
		require.Len(t, r.messages(KindError), 1)
	}
}

func TestVerifySourceCannotRewind(t *testing.T) {
	t.Parallel()

	data := pattern(2 * chunk)
	h := newHarness(t, seekFailReader{bytes.NewReader(data)}, int64(len(data)), 2, Config{Verify: true})

	err := h.task.Process(context.Background(), make([]byte, chunk))
	assert.ErrorIs(t, err, image.Read)
	for _, r := range h.obs {
		assertFinishedOnce(t, r)
		errs := r.messages(KindError)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "error reading from source")
	}
}

func TestVerifyCancelled(t *testing.T) {
	t.Parallel()

	data := pattern(6 * chunk)
	polls := 0
	h := newHarness(t, bytes.NewReader(data), int64(len(data)), 2, Config{
		Verify: true,
		// six copy chunks pass, then the second verify chunk is cancelled
		Cancel: func() bool {
			polls++
			return polls > 7
		},
	})

	assert.ErrorIs(t, h.task.Process(context.Background(), make([]byte, chunk)), ErrKilled)
	for _, r := range h.obs {
		assertFinishedOnce(t, r)
		assert.Equal(t, []string{""}, r.messages(KindVerify))
		assert.Equal(t, []string{"writing to the device was killed"}, r.messages(KindError))
	}
}
