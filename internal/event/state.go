package event

// State is the cached on/off state of a device.
type State int32

// Device states. StateUnknown is held until the first successful poll and
// after any failed one.
const (
	StateUnknown State = iota
	StateOff
	StateOn
)

// StateOf maps a boolean to StateOn or StateOff.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// Known reports whether the state is on or off.
func (s State) Known() bool {
	return s == StateOn || s == StateOff
}

// IsOn reports whether the state is StateOn. Unknown counts as not on.
func (s State) IsOn() bool {
	return s == StateOn
}

// Payload returns the bus token for the state: "on" or "off".
// Unknown renders as "off" since it is never published.
func (s State) Payload() string {
	if s == StateOn {
		return "on"
	}
	return "off"
}

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}
