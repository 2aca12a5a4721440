// Package ui renders flashing sessions: wire records for a supervising
// process, plain lines for logs and pipes, or an in-place HUD on a TTY.
package ui

import (
	"io"

	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/wire"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	// It must drain the channel even after an output error, since the
	// engine blocks on every send.
	Run(events <-chan Event) error
	// Summary returns the final summary.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	ErrWriter  io.Writer
	Stats      *stats.Collector
	IsTTY      bool
	Machine    bool
	Quiet      bool
	Verbose    bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // the presenter kind is picked at runtime
func NewPresenter(
	cfg Config,
) Presenter {
	if cfg.Machine {
		return &machinePresenter{
			enc:   wire.NewEncoder(cfg.Writer),
			stats: cfg.Stats,
		}
	}
	if cfg.Quiet {
		return &quietPresenter{stats: cfg.Stats}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:       cfg.Writer,
			errW:    cfg.ErrWriter,
			stats:   cfg.Stats,
			verbose: cfg.Verbose,
		}
	}
	return &hudPresenter{
		w:     cfg.ErrWriter, // HUD renders to stderr (the TTY)
		stats: cfg.Stats,
	}
}
