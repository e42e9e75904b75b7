// Package event defines the messages that flow through the central queue.
//
// Three variants exist: DeviceState (a poller observed a state change),
// DeviceTelemetry (a poller read energy-meter data) and BusMessage (a
// message arrived from the broker). Each is built through a validating
// constructor and is immutable afterwards; the router consumes every event
// exactly once.
package event
