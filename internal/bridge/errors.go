package bridge

import "errors"

var (
	// ErrOutboxFull is returned by TryPublish when the outbound queue is full.
	ErrOutboxFull = errors.New("bridge: outbound queue full")

	// ErrInvalidSession wraps configuration errors found while building a
	// session. These are fatal and never retried.
	ErrInvalidSession = errors.New("bridge: invalid session configuration")

	// ErrNoSession is reported by health checks while no broker session is up.
	ErrNoSession = errors.New("bridge: no broker session")

	// ErrUnknownDriver is returned for a device driver that is not built in.
	ErrUnknownDriver = errors.New("bridge: unknown device driver")
)
