package event

import "fmt"

// Event is one item on the central queue. The set of implementations is
// closed: DeviceState, DeviceTelemetry and BusMessage.
type Event interface {
	// Kind returns a short label used in logs and metrics.
	Kind() string

	isEvent()
}

// DeviceState reports a change of a device's on/off state.
type DeviceState struct {
	name     string
	state    State
	oldState State
}

// NewDeviceState builds a DeviceState event.
//
// Parameters:
//   - name: Location name of the device (required)
//   - state: Newly observed state (must be on or off)
//   - old: Previously cached state (may be unknown)
//
// Returns:
//   - DeviceState: The event
//   - error: ErrMissingField if name is empty or state is unknown
func NewDeviceState(name string, state, old State) (DeviceState, error) {
	if name == "" {
		return DeviceState{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	if !state.Known() {
		return DeviceState{}, fmt.Errorf("%w: state", ErrMissingField)
	}
	return DeviceState{name: name, state: state, oldState: old}, nil
}

// Name returns the device's location name.
func (e DeviceState) Name() string { return e.name }

// State returns the new state.
func (e DeviceState) State() State { return e.state }

// OldState returns the state cached before the change.
func (e DeviceState) OldState() State { return e.oldState }

// Kind implements Event.
func (DeviceState) Kind() string { return "device_state" }

func (DeviceState) isEvent() {}

// DeviceTelemetry carries one energy-meter reading in its textual form,
// e.g. "<EmeterStatus power=45 voltage=120.0 current=1.2>".
type DeviceTelemetry struct {
	name      string
	telemetry string
}

// NewDeviceTelemetry builds a DeviceTelemetry event.
// It returns ErrMissingField if name or telemetry is empty.
func NewDeviceTelemetry(name, telemetry string) (DeviceTelemetry, error) {
	if name == "" {
		return DeviceTelemetry{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	if telemetry == "" {
		return DeviceTelemetry{}, fmt.Errorf("%w: telemetry", ErrMissingField)
	}
	return DeviceTelemetry{name: name, telemetry: telemetry}, nil
}

// Name returns the device's location name.
func (e DeviceTelemetry) Name() string { return e.name }

// Telemetry returns the raw reading text.
func (e DeviceTelemetry) Telemetry() string { return e.telemetry }

// Fields parses the reading into key/value pairs.
func (e DeviceTelemetry) Fields() []Field { return ParseTelemetry(e.telemetry) }

// Kind implements Event.
func (DeviceTelemetry) Kind() string { return "device_telemetry" }

func (DeviceTelemetry) isEvent() {}

// BusMessage is a message received from the broker.
type BusMessage struct {
	topic   string
	payload string
}

// NewBusMessage builds a BusMessage event. The payload may be empty; the
// topic may not.
func NewBusMessage(topic, payload string) (BusMessage, error) {
	if topic == "" {
		return BusMessage{}, fmt.Errorf("%w: topic", ErrMissingField)
	}
	return BusMessage{topic: topic, payload: payload}, nil
}

// Topic returns the topic the message arrived on.
func (e BusMessage) Topic() string { return e.topic }

// Payload returns the message body.
func (e BusMessage) Payload() string { return e.payload }

// Kind implements Event.
func (BusMessage) Kind() string { return "bus_message" }

func (BusMessage) isEvent() {}
