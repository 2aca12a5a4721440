package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bamsammich/burn/internal/event"
	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
)

const (
	maxLogEntries  = 500
	rowPathWidth   = 14
	rowLabelWidth  = 18
	rowBarWidth    = 20
	rowSparkWidth  = 12
	minLogLines    = 3
	devicesChrome  = 1 // divider between rows and log
	logTimeLayout  = "15:04:05"
	finishedMarker = "finished"
)

// logEntry is one line of the session log under the device rows.
type logEntry struct {
	at     time.Time
	path   string
	text   string
	failed bool
}

// devicesView renders one row per device plus a scrolling session log.
type devicesView struct {
	log      []logEntry
	selected int
	offset   int // first visible device row
}

func newDevicesView() devicesView {
	return devicesView{}
}

func (v *devicesView) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.DeviceMessage:
		switch ev.Kind {
		case "E":
			v.append(logEntry{at: ev.Timestamp, path: ev.Path, text: ev.Text, failed: true})
		case "F", "S", "V":
			v.append(logEntry{at: ev.Timestamp, path: ev.Path, text: phaseName(ev.Kind)})
		}
	case event.DeviceFinished:
		v.append(logEntry{at: ev.Timestamp, path: ev.Path, text: finishedMarker})
	case event.SessionFinished:
		if ev.Error != nil {
			v.append(logEntry{at: ev.Timestamp, text: ev.Error.Error(), failed: true})
		}
	case event.SessionStarted, event.DeviceAdded, event.DeviceProgress:
	}
}

func (v *devicesView) append(e logEntry) {
	v.log = append(v.log, e)
	if len(v.log) > maxLogEntries {
		v.log = v.log[len(v.log)-maxLogEntries:]
	}
}

// navigate moves the selection for a vi-style or arrow key over total
// rows. It reports whether the key was a navigation key.
func (v *devicesView) navigate(key string, total int) bool {
	switch key {
	case "j", "down":
		v.selected = min(v.selected+1, max(total-1, 0))
	case "k", "up":
		v.selected = max(v.selected-1, 0)
	case "g", "home":
		v.selected = 0
	case "G", "end":
		v.selected = max(total-1, 0)
	default:
		return false
	}
	return true
}

func (v *devicesView) view(width, height int, snap stats.Snapshot, collector *stats.Collector) string {
	var b strings.Builder

	rowsHeight := max(height-devicesChrome-minLogLines, 1)
	v.scrollTo(rowsHeight)

	end := min(v.offset+rowsHeight, len(snap.Devices))
	rows := 0
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderRow(snap.Devices[i], i == v.selected, snap.ImageSize, collector))
		b.WriteByte('\n')
		rows++
	}
	for ; rows < rowsHeight; rows++ {
		b.WriteByte('\n')
	}

	b.WriteString("  " + styleDivider.Render(strings.Repeat("─", max(width-4, 1))))
	b.WriteByte('\n')

	b.WriteString(v.renderLog(width, height-rowsHeight-devicesChrome))
	return b.String()
}

// scrollTo keeps the selected row inside a window of n rows.
func (v *devicesView) scrollTo(n int) {
	if v.selected < v.offset {
		v.offset = v.selected
	}
	if v.selected >= v.offset+n {
		v.offset = v.selected - n + 1
	}
}

func (v *devicesView) renderRow(d stats.Device, selected bool, size int64, collector *stats.Collector) string {
	var pct float64
	if size > 0 {
		pct = min(float64(d.Written)/float64(size), 1)
	}

	marker := "  "
	if selected {
		marker = styleSelected.Render("› ")
	}

	path := styleDevicePath.Render(fmt.Sprintf("%-*s", rowPathWidth, truncate(d.Path, rowPathWidth)))
	label := styleDeviceLabel.Render(fmt.Sprintf("%-*s", rowLabelWidth, truncate(d.Label, rowLabelWidth)))

	switch d.Outcome {
	case stats.Active:
		spark := ui.Sparkline(collector.SparklineData(d.Path, rowSparkWidth), rowSparkWidth)
		return fmt.Sprintf("%s%s %s  %s %3.0f%%  %s  %s  %s  eta %s",
			marker, path, label,
			renderBar(pct, rowBarWidth), pct*100,
			stylePhase.Render(fmt.Sprintf("%-9s", d.Phase)),
			styleSparkline.Render(spark),
			styleSpeed.Render(ui.FormatRate(collector.Speed(d.Path))),
			ui.FormatETA(collector.ETA(d.Path)),
		)
	case stats.Succeeded:
		return fmt.Sprintf("%s%s %s  %s %s", marker, path, label,
			renderBar(1, rowBarWidth), styleIconDone.Render("✓ done"))
	case stats.Mismatched:
		return fmt.Sprintf("%s%s %s  %s %s", marker, path, label,
			renderBar(pct, rowBarWidth), styleIconMismatch.Render("≠ mismatched"))
	default:
		return fmt.Sprintf("%s%s %s  %s %s", marker, path, label,
			renderBar(pct, rowBarWidth), styleIconFailed.Render("✗ failed"))
	}
}

func (v *devicesView) renderLog(width, lines int) string {
	if lines <= 0 || len(v.log) == 0 {
		return ""
	}
	start := max(len(v.log)-lines, 0)

	var b strings.Builder
	for _, e := range v.log[start:] {
		ts := styleMuted.Render(e.at.Format(logTimeLayout))
		text := truncate(e.text, max(width-rowPathWidth-14, 10))
		switch {
		case e.failed && e.path != "":
			fmt.Fprintf(&b, "  %s  %s  %s\n", ts, styleErrorPath.Render(e.path), styleError.Render(text))
		case e.failed:
			fmt.Fprintf(&b, "  %s  %s\n", ts, styleError.Render(text))
		default:
			fmt.Fprintf(&b, "  %s  %s  %s\n", ts, styleDevicePath.Render(e.path), styleMuted.Render(text))
		}
	}
	return b.String()
}

// renderBar renders a ▪/□ progress bar in theme colors.
func renderBar(pct float64, width int) string {
	bar := []rune(ui.ProgressBar(pct, width))
	filled := 0
	for filled < len(bar) && bar[filled] == '▪' {
		filled++
	}
	return styleProgressFilled.Render(string(bar[:filled])) +
		styleProgressEmpty.Render(string(bar[filled:]))
}

func phaseName(kind string) string {
	switch kind {
	case "F":
		return "flushing"
	case "S":
		return "seeking"
	case "V":
		return "verifying"
	default:
		return "writing"
	}
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
