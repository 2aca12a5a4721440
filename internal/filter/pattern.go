package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// pattern matches device paths against a shell glob. A glob containing a
// slash is matched against the whole path ("/dev/sd?"); anything else is
// matched against the final element only ("sd?", "mmcblk*").
type pattern struct {
	glob string
	re   *regexp.Regexp
}

func compilePattern(glob string) (*pattern, error) {
	glob = strings.TrimSpace(glob)
	if glob == "" {
		return nil, errors.New("empty pattern")
	}
	prefix := "(^|/)"
	if strings.Contains(glob, "/") {
		prefix = "^"
	}
	re, err := regexp.Compile(prefix + globToRegex(strings.TrimPrefix(glob, "/")) + "$")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", glob, err)
	}
	return &pattern{glob: glob, re: re}, nil
}

func (p *pattern) match(path string) bool {
	return p.re.MatchString(strings.TrimPrefix(path, "/"))
}

func (p *pattern) String() string { return p.glob }

// globToRegex translates a glob. "*" and "?" stop at a slash, "**" does not,
// and "**/" also matches zero directories.
func globToRegex(glob string) string {
	var b strings.Builder
	for rest := glob; rest != ""; {
		switch {
		case strings.HasPrefix(rest, "**/"):
			b.WriteString("(.*/)?")
			rest = rest[3:]
		case strings.HasPrefix(rest, "**"):
			b.WriteString(".*")
			rest = rest[2:]
		case rest[0] == '*':
			b.WriteString("[^/]*")
			rest = rest[1:]
		case rest[0] == '?':
			b.WriteString("[^/]")
			rest = rest[1:]
		case rest[0] == '[':
			if cls, n := charClass(rest); n > 0 {
				b.WriteString(cls)
				rest = rest[n:]
				continue
			}
			b.WriteString(`\[`)
			rest = rest[1:]
		default:
			r, size := utf8.DecodeRuneInString(rest)
			b.WriteString(regexp.QuoteMeta(string(r)))
			rest = rest[size:]
		}
	}
	return b.String()
}

// charClass converts the "[...]" class at the start of s. It returns the
// regex class and the bytes consumed, or 0 if the class is unterminated.
func charClass(s string) (string, int) {
	i := 1
	if i < len(s) && s[i] == '!' {
		i++
	}
	if i < len(s) && s[i] == ']' {
		i++
	}
	end := strings.IndexByte(s[i:], ']')
	if end < 0 {
		return "", 0
	}
	end += i
	body := s[1:end]
	if strings.HasPrefix(body, "!") {
		body = "^" + body[1:]
	}
	return "[" + body + "]", end + 1
}
