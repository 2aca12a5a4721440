package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	SessionStarted Type = iota + 1
	DeviceAdded
	DeviceProgress
	DeviceMessage
	DeviceFinished
	SessionFinished
)

var typeNames = [...]string{
	SessionStarted:  "SessionStarted",
	DeviceAdded:     "DeviceAdded",
	DeviceProgress:  "DeviceProgress",
	DeviceMessage:   "DeviceMessage",
	DeviceFinished:  "DeviceFinished",
	SessionFinished: "SessionFinished",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single progress event from a flashing session.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // device path
	Label     string // DeviceAdded: vendor and model
	Kind      string // DeviceMessage: E, F, S, V or W
	Text      string // DeviceMessage
	Size      int64  // image size (SessionStarted) or bytes so far (DeviceProgress)
	Total     int64  // number of devices (SessionStarted)
	Error     error  // SessionFinished
}

// Send delivers ev on ch, stamping it with the current time if unset.
// It blocks until the event is accepted: terminal events must never be
// dropped.
func Send(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ch <- ev
}
