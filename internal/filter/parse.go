package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadFile adds the rules in the file at path to the chain. See ReadRules.
func (c *Chain) LoadFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // user-supplied rules file
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()

	if err := c.ReadRules(f); err != nil {
		return fmt.Errorf("filter file %s: %w", path, err)
	}
	return nil
}

// ReadRules adds one rule per line of r, in order. "+ glob" includes and
// "- glob" or a bare glob excludes. Blank lines and lines starting with '#'
// are skipped.
func (c *Chain) ReadRules(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		add := c.AddExclude
		switch {
		case strings.HasPrefix(line, "+ "):
			add = c.AddInclude
			line = line[2:]
		case strings.HasPrefix(line, "- "):
			line = line[2:]
		}
		if err := add(line); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}
