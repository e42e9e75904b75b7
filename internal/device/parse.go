package device

import (
	"fmt"
	"strings"
)

var (
	toggleWords = wordSet("toggle", "flip", "other", "change", "reverse")
	onWords     = wordSet("on", "yes", "1", "go", "yeah", "yay", "woot")
	offWords    = wordSet("off", "no", "0", "stop", "boo", "nay", "nuke")
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ParsePayload translates a bus payload into a requested relay state.
//
// The exact tokens "on" and "off" are canonical and need no republish. A
// toggle word inverts current (unknown counts as off). On and off synonyms
// are matched case-insensitively. For toggles and synonyms the canonical
// token is returned in republish so the bus converges on "on"/"off".
//
// Parameters:
//   - payload: Raw message body
//   - current: The plug's cached state
//
// Returns:
//   - state: true for on, false for off
//   - republish: Canonical token to publish back, or "" when none is needed
//   - err: ErrUnknownPayload if the payload is not recognised
func ParsePayload(payload string, current State) (state bool, republish string, err error) {
	switch payload {
	case "on":
		return true, "", nil
	case "off":
		return false, "", nil
	}

	word := strings.ToLower(payload)
	if _, ok := toggleWords[word]; ok {
		state = !current.IsOn()
		return state, StateOf(state).Payload(), nil
	}
	if _, ok := onWords[word]; ok {
		return true, StateOn.Payload(), nil
	}
	if _, ok := offWords[word]; ok {
		return false, StateOff.Payload(), nil
	}

	return false, "", fmt.Errorf("%w: %q", ErrUnknownPayload, payload)
}
