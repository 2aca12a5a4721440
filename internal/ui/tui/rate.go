package tui

import (
	"fmt"
	"strings"

	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
)

// renderRate draws the aggregate throughput view: the combined speed, its
// 60-second history and one sparkline per active device.
func renderRate(width, height int, snap stats.Snapshot, collector *stats.Collector) string {
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	lines := 0

	// Big throughput number.
	speedStr := styleBigNumber.Render(ui.FormatRate(collector.TotalSpeed()))
	b.WriteString("  " + speedStr + "\n\n")
	lines += 2

	// Full-width sparkline (60-second history).
	sparkWidth := max(width-4, 10)
	spark := ui.Sparkline(collector.SparklineData("", sparkWidth), sparkWidth)
	b.WriteString("  " + styleSparkline.Render(spark) + "\n\n")
	lines += 2

	statLine := fmt.Sprintf("  %s   %s   %s   %s",
		styleSpeed.Render(fmt.Sprintf("%d active", snap.Active)),
		styleIconDone.Render(fmt.Sprintf("%d succeeded", snap.Succeeded)),
		styleIconFailed.Render(fmt.Sprintf("%d failed", snap.Failed)),
		styleIconMismatch.Render(fmt.Sprintf("%d mismatched", snap.Mismatched)),
	)
	b.WriteString(statLine + "\n\n")
	lines += 2

	rowSpark := max(width-rowPathWidth-20, 10)
	for _, d := range snap.Devices {
		if lines >= height {
			break
		}
		if d.Outcome != stats.Active {
			continue
		}
		data := collector.SparklineData(d.Path, rowSpark)
		fmt.Fprintf(&b, "  %s %s  %s\n",
			styleDevicePath.Render(fmt.Sprintf("%-*s", rowPathWidth, truncate(d.Path, rowPathWidth))),
			styleSparkline.Render(ui.Sparkline(data, rowSpark)),
			styleSpeed.Render(ui.FormatRate(collector.Speed(d.Path))),
		)
		lines++
	}

	return b.String()
}
