package device

import "github.com/nerrad567/plugsync/internal/event"

// State is the cached on/off state of a plug.
type State = event.State

// Re-exported states so callers need only this package.
const (
	StateUnknown = event.StateUnknown
	StateOff     = event.StateOff
	StateOn      = event.StateOn
)

// StateOf maps a boolean to StateOn or StateOff.
func StateOf(on bool) State {
	return event.StateOf(on)
}
