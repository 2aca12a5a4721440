package ui

import (
	"fmt"

	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/wire"
)

// machinePresenter writes every event as a wire record, one per line.
// Nothing else may be written to its writer.
type machinePresenter struct {
	enc   *wire.Encoder
	stats *stats.Collector
	err   error
}

func (p *machinePresenter) Run(events <-chan Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	return p.err
}

func (p *machinePresenter) handleEvent(ev Event) {
	p.stats.Apply(ev)
	if p.err != nil {
		// The reader went away; keep draining so the engine never blocks.
		return
	}
	rec, ok := wire.FromEvent(ev)
	if !ok {
		return
	}
	if err := p.enc.Encode(rec); err != nil {
		p.err = fmt.Errorf("write %s record: %w", rec.Kind, err)
	}
}

// Summary is empty: stdout carries only records.
func (p *machinePresenter) Summary() string {
	return ""
}
