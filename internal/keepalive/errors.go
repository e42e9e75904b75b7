package keepalive

import "errors"

var (
	// ErrInvalidKeepAlive is returned by NewKeepAlive for bad configuration.
	ErrInvalidKeepAlive = errors.New("keepalive: invalid configuration")

	// ErrUnknownLocation is returned when a location has no monitored device.
	ErrUnknownLocation = errors.New("keepalive: unknown location")
)
