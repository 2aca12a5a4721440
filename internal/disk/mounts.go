package disk

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// MountsPath is the kernel's view of the calling process's mounts.
const MountsPath = "/proc/self/mounts"

// Mount is one entry of a mounts table.
type Mount struct {
	Source  string
	Dest    string
	FSType  string
	Options string
}

// ReadMounts snapshots the current mount table.
func ReadMounts() ([]Mount, error) {
	f, err := os.Open(MountsPath)
	if err != nil {
		return nil, fmt.Errorf("reading mounts: %w", err)
	}
	defer f.Close()
	return ParseMounts(f)
}

// ParseMounts reads a mounts table in /proc/self/mounts format: six
// space-separated fields per line with octal escapes (\040) for whitespace
// and backslashes inside fields.
func ParseMounts(r io.Reader) ([]Mount, error) {
	var mounts []Mount
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, " ")
		if len(fields) < 6 {
			return nil, fmt.Errorf("mounts line %d: expected 6 fields, got %d", lineNo, len(fields))
		}
		var m Mount
		for i, dst := range []*string{&m.Source, &m.Dest, &m.FSType, &m.Options} {
			v, err := unescapeMountField(fields[i])
			if err != nil {
				return nil, fmt.Errorf("mounts line %d: %w", lineNo, err)
			}
			*dst = v
		}
		mounts = append(mounts, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading mounts: %w", err)
	}
	return mounts, nil
}

func unescapeMountField(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+4 > len(s) {
			return "", fmt.Errorf("truncated octal code in %q", s)
		}
		var code int
		for _, c := range []byte(s[i+1 : i+4]) {
			if c < '0' || c > '7' {
				return "", fmt.Errorf("invalid octal code in %q", s)
			}
			code = code*8 + int(c-'0')
		}
		if code > 0xff {
			return "", fmt.Errorf("invalid octal code in %q", s)
		}
		b.WriteByte(byte(code))
		i += 3
	}
	return b.String(), nil
}
