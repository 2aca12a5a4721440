package event

// Progress reports one device's progress as events. It satisfies
// engine.Progress.
type Progress struct {
	Path string
	ch   chan<- Event
}

// NewProgress returns a Progress for path that sends on ch.
func NewProgress(path string, ch chan<- Event) *Progress {
	return &Progress{Path: path, ch: ch}
}

func (p *Progress) Message(kind, text string) {
	Send(p.ch, Event{Type: DeviceMessage, Path: p.Path, Kind: kind, Text: text})
}

func (p *Progress) Set(written uint64) {
	Send(p.ch, Event{Type: DeviceProgress, Path: p.Path, Size: int64(written)}) //nolint:gosec // G115: image sizes fit in int64
}

func (p *Progress) Finish() {
	Send(p.ch, Event{Type: DeviceFinished, Path: p.Path})
}
