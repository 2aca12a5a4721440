package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeUnits maps a unit letter to its power of 1024.
var sizeUnits = map[byte]int{'B': 0, 'K': 1, 'M': 2, 'G': 3, 'T': 4, 'P': 5}

// ParseSize parses a size such as "512", "4M", "1.5G" or "64KiB" into bytes.
// Units are powers of 1024 whether or not the "iB" form is used, and are
// case-insensitive. Negative sizes are rejected.
func ParseSize(s string) (int64, error) {
	num := strings.TrimSpace(s)
	if num == "" {
		return 0, fmt.Errorf("empty size string")
	}

	upper := strings.ToUpper(num)
	switch n := len(upper); {
	case strings.HasSuffix(upper, "IB"):
		upper = upper[:n-2]
	case n > 2 && upper[n-1] == 'B' && upper[n-2] != 'B' && isUnit(upper[n-2]):
		upper = upper[:n-1]
	}

	exp := 0
	if upper != "" && isUnit(upper[len(upper)-1]) {
		exp = sizeUnits[upper[len(upper)-1]]
		upper = upper[:len(upper)-1]
	}
	if upper == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	mult := int64(1) << (10 * exp)
	if n, err := strconv.ParseInt(upper, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size: %q", s)
		}
		return n * mult, nil
	}
	f, err := strconv.ParseFloat(upper, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative size: %q", s)
	}
	return int64(f * float64(mult)), nil
}

func isUnit(c byte) bool {
	_, ok := sizeUnits[c]
	return ok
}
