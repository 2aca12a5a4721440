package ui

import "github.com/bamsammich/burn/internal/event"

// Event is re-exported for convenience.
type Event = event.Event

// Re-export event types for convenience.
const (
	SessionStarted  = event.SessionStarted
	DeviceAdded     = event.DeviceAdded
	DeviceProgress  = event.DeviceProgress
	DeviceMessage   = event.DeviceMessage
	DeviceFinished  = event.DeviceFinished
	SessionFinished = event.SessionFinished
)
