package wire

import (
	"github.com/bamsammich/burn/internal/event"
)

// FromEvent maps a session event to its record. Events with no wire form
// report false.
func FromEvent(ev event.Event) (Record, bool) {
	switch ev.Type {
	case event.SessionStarted:
		return SizeRecord(uint64(ev.Size)), true //nolint:gosec // G115: sizes are non-negative
	case event.DeviceAdded:
		return DeviceRecord(ev.Path), true
	case event.DeviceProgress:
		return SetRecord(ev.Path, uint64(ev.Size)), true //nolint:gosec // G115: sizes are non-negative
	case event.DeviceMessage:
		return MessageRecord(ev.Path, ev.Kind, ev.Text), true
	case event.DeviceFinished:
		return FinishedRecord(ev.Path), true
	default:
		return Record{}, false
	}
}

// Event maps the record back to a session event.
func (r Record) Event() event.Event {
	switch r.Kind {
	case Size:
		return event.Event{Type: event.SessionStarted, Size: int64(r.Value)} //nolint:gosec // G115: sizes fit in int64
	case Device:
		return event.Event{Type: event.DeviceAdded, Path: r.Path}
	case Set:
		return event.Event{Type: event.DeviceProgress, Path: r.Path, Size: int64(r.Value)} //nolint:gosec // G115
	case Message:
		kind, text := SplitMessage(r.Text)
		return event.Event{Type: event.DeviceMessage, Path: r.Path, Kind: kind, Text: text}
	default:
		return event.Event{Type: event.DeviceFinished, Path: r.Path}
	}
}
