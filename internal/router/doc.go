// Package router maps events onto each other.
//
// Router is the single consumer of the session's central event queue:
//
//	DeviceState      ──▶ publish <topic> = on|off
//	DeviceTelemetry  ──▶ publish <topic>/emeter and <topic>/emeter/<key>
//	BusMessage       ──▶ keep-alive topic: Watchdog.HandleSignal
//	                     primary topic:    ParsePayload, Plug.RequestState
//
// Routes are built once from configuration before any bus I/O. Two devices
// (or a device and a keep-alive) sharing a topic is a configuration error.
package router
