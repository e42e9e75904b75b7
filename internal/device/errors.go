package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceBusy) {
//	    // queue full, request dropped
//	}
var (
	// ErrDeviceBusy is returned by RequestState when the command queue is full.
	ErrDeviceBusy = errors.New("device: command queue full")

	// ErrNoTelemetry is returned by PollTelemetry when the plug has no energy meter.
	ErrNoTelemetry = errors.New("device: no telemetry capability")

	// ErrResolveFailed is returned when a handle could not be found.
	// It is transient; the next call retries resolution.
	ErrResolveFailed = errors.New("device: unable to resolve handle")

	// ErrDeviceNotFound is returned by a Resolver for an unknown host.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnknownPayload is returned by ParsePayload for unrecognised text.
	ErrUnknownPayload = errors.New("device: unknown payload")

	// ErrInvalidConfig is returned by NewPlug for incomplete configuration.
	ErrInvalidConfig = errors.New("device: invalid config")
)
