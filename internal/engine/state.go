package engine

import "fmt"

// State is the phase a Task is in.
type State int32

const (
	Idle State = iota
	Copying
	Flushing
	Verifying
	Done
	Failed
	Killed
)

var stateNames = [...]string{
	Idle:      "idle",
	Copying:   "copying",
	Flushing:  "flushing",
	Verifying: "verifying",
	Done:      "done",
	Failed:    "failed",
	Killed:    "killed",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Killed
}
