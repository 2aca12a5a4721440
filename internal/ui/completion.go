package ui

import (
	"fmt"
	"strings"

	"github.com/bamsammich/burn/internal/stats"
)

// CompletionSummary builds the final summary from a snapshot.
// Format:
//
//	done ✓  2 of 3 devices succeeded  image 2.1 GiB  time 3m 17s
//	failed      /dev/sdc  error writing disk '/dev/sdc': input/output error
//	mismatched  /dev/sdd  error verifying disk '/dev/sdd': mismatch at 0:4194304
func CompletionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.Failed > 0 || snap.Mismatched > 0 || snap.Err != nil {
		icon = "✗"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "done %s  %d of %d devices succeeded  image %s  time %s",
		icon,
		snap.Succeeded, snap.Total(),
		FormatBytes(snap.ImageSize),
		FormatDuration(snap.Elapsed),
	)
	if snap.Err != nil {
		fmt.Fprintf(&b, "  error %v", snap.Err)
	}

	for _, o := range []stats.Outcome{stats.Failed, stats.Mismatched} {
		for _, d := range snap.With(o) {
			fmt.Fprintf(&b, "\n%-10s  %s", o, d.Path)
			if d.Err != "" {
				fmt.Fprintf(&b, "  %s", d.Err)
			}
		}
	}
	return b.String()
}
