package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bamsammich/burn/internal/stats"
)

const (
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

const (
	sparklineWidth   = 20
	progressBarWidth = 20
	pathWidth        = 14

	hudMinInterval = 50 * time.Millisecond
	hudRedraw      = 100 * time.Millisecond
	firstSample    = 250 * time.Millisecond
	sampleInterval = time.Second
)

// hudPresenter is the interactive TTY display. Device state changes scroll
// as a feed above a block of per-device progress bars that is redrawn in
// place.
type hudPresenter struct {
	w     io.Writer
	stats *stats.Collector

	hudDrawn     bool
	hudLineCount int
	lastHUDDraw  time.Time
}

func (p *hudPresenter) Run(events <-chan Event) error {
	redraw := time.NewTicker(hudRedraw)
	defer redraw.Stop()
	// The first throughput sample comes early so the bars show a rate
	// before a full second has passed.
	sample := time.NewTimer(firstSample)
	defer sample.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			if time.Since(p.lastHUDDraw) >= hudMinInterval {
				p.drawHUD()
			}
		case <-redraw.C:
			p.drawHUD()
		case <-sample.C:
			p.stats.Tick()
			sample.Reset(sampleInterval)
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	p.stats.Apply(ev)

	switch {
	case ev.Type == DeviceMessage && ev.Kind == "E":
		p.feed("✗  %s  %s", p.styledPath(ev.Path), ev.Text)
	case ev.Type == DeviceMessage && ev.Kind == "V":
		p.feed("%s·  %s  verifying%s", ansiDim, ev.Path, ansiReset)
	case ev.Type == DeviceFinished:
		// A failed device was already reported by its error message.
		if d, ok := p.device(ev.Path); ok && d.Outcome == stats.Succeeded {
			p.feed("✓  %s  %s", p.styledPath(d.Path), d.Label)
		}
	}
}

func (p *hudPresenter) device(path string) (stats.Device, bool) {
	for _, d := range p.stats.Snapshot().Devices {
		if d.Path == path {
			return d, true
		}
	}
	return stats.Device{}, false
}

// feed prints one line above the HUD.
func (p *hudPresenter) feed(format string, args ...any) {
	p.clearHUD()
	fmt.Fprintf(p.w, format+"\n", args...)
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	p.clearHUD()

	snap := p.stats.Snapshot()
	if len(snap.Devices) == 0 {
		return
	}

	var b strings.Builder
	spark := Sparkline(p.stats.SparklineData("", sparklineWidth), sparklineWidth)
	fmt.Fprintf(&b, "       %s   %s   %d / %d devices done   %s\n",
		spark, FormatRate(p.stats.TotalSpeed()),
		snap.Total()-snap.Active, snap.Total(), FormatBytes(snap.ImageSize))
	for _, d := range snap.Devices {
		b.WriteString(p.deviceLine(d, snap.ImageSize))
		b.WriteByte('\n')
	}
	io.WriteString(p.w, b.String()) //nolint:errcheck // terminal output

	p.hudDrawn = true
	p.hudLineCount = 1 + len(snap.Devices)
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) deviceLine(d stats.Device, size int64) string {
	frac := 0.0
	if size > 0 {
		frac = min(float64(d.Written)/float64(size), 1)
	}
	bar := ProgressBar(frac, progressBarWidth)
	path := fmt.Sprintf("%-*s", pathWidth, truncPath(d.Path, pathWidth))

	switch d.Outcome {
	case stats.Active:
		return fmt.Sprintf(" %3.0f%%  %s  %s  %-9s  %s   eta %s",
			frac*100, bar, path, d.Phase,
			FormatRate(p.stats.Speed(d.Path)), FormatETA(p.stats.ETA(d.Path)))
	case stats.Succeeded:
		return fmt.Sprintf(" %s100%%  %s  %s  done%s", ansiDim, bar, path, ansiReset)
	default:
		return fmt.Sprintf(" %s  --   %s  %s  %s%s", ansiDim, bar, path, d.Outcome, ansiReset)
	}
}

// clearHUD moves the cursor to the top of the last draw and erases to the
// end of the screen.
func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	fmt.Fprintf(p.w, "\033[%dA\033[J", p.hudLineCount)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

func (p *hudPresenter) styledPath(path string) string {
	return ansiBold + path + ansiReset
}

// truncPath keeps the tail of path, which is the part that tells devices
// apart.
func truncPath(path string, maxLen int) string {
	switch {
	case len(path) <= maxLen:
		return path
	case maxLen <= 3:
		return path[:maxLen]
	default:
		return "..." + path[len(path)-maxLen+3:]
	}
}
