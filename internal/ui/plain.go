package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/burn/internal/stats"
)

// plainPresenter outputs one line per device state change to stdout,
// and periodic progress to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	verbose bool
}

const plainProgressInterval = 5 * time.Second

func (p *plainPresenter) Run(events <-chan Event) error {
	progressTicker := time.NewTicker(plainProgressInterval)
	defer progressTicker.Stop()
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-secTicker.C:
			p.stats.Tick()
		case <-progressTicker.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	p.stats.Apply(ev)
	switch ev.Type {
	case SessionStarted:
		fmt.Fprintf(p.w, "image  %s\n", FormatBytes(ev.Size))
	case DeviceAdded:
		if ev.Label != "" {
			fmt.Fprintf(p.w, "%s  %s\n", ev.Path, ev.Label)
		} else {
			fmt.Fprintf(p.w, "%s\n", ev.Path)
		}
	case DeviceMessage:
		p.printMessage(ev)
	case DeviceFinished:
		p.printFinished(ev.Path)
	case DeviceProgress, SessionFinished:
	}
}

func (p *plainPresenter) printMessage(ev Event) {
	switch ev.Kind {
	case "E":
		fmt.Fprintf(p.w, "%s  error: %s\n", ev.Path, ev.Text)
	case "F", "S", "V":
		fmt.Fprintf(p.w, "%s  %s\n", ev.Path, phaseLabel(ev.Kind))
	default:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s %s\n", ev.Path, ev.Kind, ev.Text)
		}
	}
}

func (p *plainPresenter) printFinished(path string) {
	for _, d := range p.stats.Snapshot().Devices {
		if d.Path == path {
			fmt.Fprintf(p.w, "%s  %s\n", path, d.Outcome)
			return
		}
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	for _, d := range snap.Devices {
		if d.Outcome != stats.Active {
			continue
		}
		if snap.ImageSize > 0 {
			pct := float64(d.Written) / float64(snap.ImageSize) * 100
			fmt.Fprintf(p.errW, "progress: %s %s %.0f%% %s/%s %s eta %s\n",
				d.Path, d.Phase, pct,
				FormatBytes(d.Written), FormatBytes(snap.ImageSize),
				FormatRate(p.stats.Speed(d.Path)),
				FormatETA(p.stats.ETA(d.Path)),
			)
		} else {
			fmt.Fprintf(p.errW, "progress: %s %s %s\n",
				d.Path, d.Phase, FormatBytes(d.Written))
		}
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// phaseLabel names a message kind for display.
func phaseLabel(kind string) string {
	switch kind {
	case "W":
		return "writing"
	case "F":
		return "flushing"
	case "S":
		return "seeking"
	case "V":
		return "verifying"
	default:
		return kind
	}
}
