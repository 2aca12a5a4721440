package main

import (
	"os"

	"github.com/bamsammich/burn/internal/config"
	"github.com/bamsammich/burn/internal/event"
	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
	"github.com/bamsammich/burn/internal/ui/tui"
)

type presentOptions struct {
	machine    bool
	fullscreen bool
	quiet      bool
	verbose    bool
	noProgress bool
	isTTY      bool
	image      string
	theme      config.ThemeConfig
}

//nolint:ireturn // the presenter kind is picked at runtime
func newPresenter(po presentOptions, collector *stats.Collector) ui.Presenter {
	if po.fullscreen {
		return tui.NewPresenter(tui.Config{
			Stats: collector,
			Image: po.image,
			Theme: po.theme,
		})
	}
	return ui.NewPresenter(ui.Config{
		Writer:     os.Stdout,
		ErrWriter:  os.Stderr,
		Stats:      collector,
		IsTTY:      po.isTTY,
		Machine:    po.machine,
		Quiet:      po.quiet,
		Verbose:    po.verbose,
		NoProgress: po.noProgress,
	})
}

// present runs p in the foreground until it returns. Inline presenters only
// return once events is closed. The TUI can return early when the user
// quits: abort then stops the producer, and whatever it still sends is
// folded into collector so the summary and exit status stay accurate.
func present(p ui.Presenter, events <-chan event.Event, abort func(), collector *stats.Collector) error {
	err := p.Run(events)
	abort()
	for ev := range events {
		collector.Apply(ev)
	}
	return err
}
