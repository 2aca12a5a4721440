package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bamsammich/burn/internal/stats"
)

const binaryPrefixes = "KMGTPE"

// FormatRate formats a bytes-per-second rate in the same binary units as
// FormatBytes.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec < 1 {
		return "0 B/s"
	}
	return scaleBytes(bytesPerSec) + "/s"
}

// scaleBytes keeps three significant digits: 1.50 MiB, 15.0 MiB, 150 MiB.
func scaleBytes(v float64) string {
	if v < 1024 {
		return fmt.Sprintf("%.0f B", v)
	}
	exp := -1
	for v >= 1024 && exp < len(binaryPrefixes)-1 {
		v /= 1024
		exp++
	}
	prec := 0
	switch {
	case v < 10:
		prec = 2
	case v < 100:
		prec = 1
	}
	return fmt.Sprintf("%.*f %ciB", prec, v, binaryPrefixes[exp])
}

// FormatETA formats the time left, or "--" when it is unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return clock(d)
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	return clock(max(d, 0))
}

func clock(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// ProgressBar renders frac (clamped to 0..1) as width cells of ▪ and □.
func ProgressBar(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(min(max(frac, 0), 1) * float64(width))
	return strings.Repeat("▪", filled) + strings.Repeat("□", width-filled)
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}
