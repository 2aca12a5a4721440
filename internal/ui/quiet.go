package ui

import "github.com/bamsammich/burn/internal/stats"

// quietPresenter consumes events but produces no output.
type quietPresenter struct {
	stats *stats.Collector
}

func (p *quietPresenter) Run(events <-chan Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	return nil
}

func (p *quietPresenter) handleEvent(ev Event) {
	// Outcomes still feed the summary and the exit status.
	p.stats.Apply(ev)
}

func (p *quietPresenter) Summary() string {
	return ""
}
