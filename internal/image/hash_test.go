package image

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownDigests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		algo Algorithm
		want string
	}{
		{SHA256, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{MD5, "5eb63bbbe01eeed093cb22bb8f5acdc3"},
		{BLAKE3, "d74981efa70a0c880b8d8c1985d075dbcbf679b99a5f9914e5aaf96b831a9e24"},
		{XXHash, "45ab6734b21e6968"},
	}
	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			t.Parallel()
			got, err := Hash(context.Background(), strings.NewReader("hello world"), tt.algo, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashFileProgress(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "img")
	data := make([]byte, 3*hashBufSize+17)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var last int64
	calls := 0
	sum, err := HashFile(context.Background(), path, BLAKE3, func(n int64) {
		assert.Greater(t, n, last)
		last = n
		calls++
	})
	require.NoError(t, err)
	assert.Len(t, sum, 64)
	assert.Equal(t, int64(len(data)), last)
	assert.GreaterOrEqual(t, calls, 4)
}

func TestHashCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Hash(ctx, strings.NewReader("data"), SHA256, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	a, err := ParseAlgorithm(" SHA256 ")
	require.NoError(t, err)
	assert.Equal(t, SHA256, a)

	_, err = ParseAlgorithm("crc32")
	assert.ErrorContains(t, err, "blake3, md5, sha256, xxhash")
}

func TestHashFileMissing(t *testing.T) {
	t.Parallel()

	_, err := HashFile(context.Background(), "/nonexistent/file", BLAKE3, nil)
	assert.ErrorIs(t, err, OpenFailed)
}
