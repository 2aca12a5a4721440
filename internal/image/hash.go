package image

import (
	"context"
	"crypto/md5" //nolint:gosec // md5 is offered for matching published checksums
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Algorithm names a supported checksum.
type Algorithm string

const (
	BLAKE3 Algorithm = "blake3"
	SHA256 Algorithm = "sha256"
	MD5    Algorithm = "md5"
	XXHash Algorithm = "xxhash"
)

var hashers = map[Algorithm]func() hash.Hash{
	BLAKE3: func() hash.Hash { return blake3.New() },
	SHA256: sha256.New,
	MD5:    md5.New,
	XXHash: func() hash.Hash { return xxhash.New() },
}

// Algorithms lists the supported algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(hashers))
	for a := range hashers {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// ParseAlgorithm maps a case-insensitive name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := hashers[a]; !ok {
		return "", fmt.Errorf("unknown checksum %q (want one of %s)", name, strings.Join(Algorithms(), ", "))
	}
	return a, nil
}

const hashBufSize = 1024 * 1024

// Hash computes the hex digest of r. onProgress, when non-nil, is called
// with the running byte count after every read. ctx is checked between
// reads.
func Hash(ctx context.Context, r io.Reader, algo Algorithm, onProgress func(int64)) (string, error) {
	newHash, ok := hashers[algo]
	if !ok {
		return "", fmt.Errorf("unknown checksum %q", algo)
	}
	h := newHash()
	buf := make([]byte, hashBufSize)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) //nolint:errcheck // hash.Hash.Write never fails
			total += int64(n)
			if onProgress != nil {
				onProgress(total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &Error{Kind: Read, Err: err}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile computes the hex digest of the file at path.
func HashFile(ctx context.Context, path string, algo Algorithm, onProgress func(int64)) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &Error{Kind: OpenFailed, Err: err}
	}
	defer f.Close()

	sum, err := Hash(ctx, f, algo, onProgress)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, nil
}
