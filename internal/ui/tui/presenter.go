package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamsammich/burn/internal/config"
	"github.com/bamsammich/burn/internal/event"
	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
)

// Config configures the TUI presenter.
type Config struct {
	Stats *stats.Collector
	Image string // image path shown in the header
	Theme config.ThemeConfig
}

// Presenter wraps a Bubble Tea program and implements ui.Presenter.
type Presenter struct {
	cfg   Config
	model Model
}

// NewPresenter creates a new TUI presenter.
func NewPresenter(cfg Config) *Presenter {
	ApplyTheme(cfg.Theme)
	return &Presenter{cfg: cfg}
}

// Run starts the Bubble Tea program and blocks until the user quits. The
// caller must keep draining events after Run returns if the session is
// still going.
func (p *Presenter) Run(events <-chan event.Event) error {
	p.model = NewModel(events, p.cfg.Stats, p.cfg.Image)
	prog := tea.NewProgram(
		p.model,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)
	finalModel, err := prog.Run()
	if err != nil {
		return err
	}
	p.model = finalModel.(Model) //nolint:errcheck,forcetypeassert // the program only ever holds a Model
	return nil
}

// Summary returns the final completion summary.
func (p *Presenter) Summary() string {
	return ui.CompletionSummary(p.cfg.Stats.Snapshot())
}
