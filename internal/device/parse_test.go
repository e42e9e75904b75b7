package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		current       State
		wantState     bool
		wantRepublish string
	}{
		{"canonical on", "on", StateOff, true, ""},
		{"canonical off", "off", StateOn, false, ""},
		{"toggle from on", "toggle", StateOn, false, "off"},
		{"toggle from off", "flip", StateOff, true, "on"},
		{"toggle from unknown", "Reverse", StateUnknown, true, "on"},
		{"upper case on", "ON", StateOff, true, "on"},
		{"on synonym", "woot", StateOff, true, "on"},
		{"numeric on", "1", StateOff, true, "on"},
		{"off synonym", "Nuke", StateOn, false, "off"},
		{"numeric off", "0", StateOn, false, "off"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, republish, err := ParsePayload(tt.payload, tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantRepublish, republish)
		})
	}
}

func TestParsePayload_Unknown(t *testing.T) {
	for _, payload := range []string{"maybe", "", " on", "onn"} {
		_, _, err := ParsePayload(payload, StateOn)
		assert.ErrorIs(t, err, ErrUnknownPayload, "payload %q", payload)
	}
}
