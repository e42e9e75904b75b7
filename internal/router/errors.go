package router

import "errors"

var (
	// ErrTopicConflict is returned when a topic is claimed twice.
	ErrTopicConflict = errors.New("router: topic assigned more than once")

	// ErrUnknownLocation is returned when a keep-alive names no configured location.
	ErrUnknownLocation = errors.New("router: keep alive for unknown location")
)
