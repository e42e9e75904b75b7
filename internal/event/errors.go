package event

import "errors"

// ErrMissingField is returned by the constructors when a mandatory field is empty.
var ErrMissingField = errors.New("event: missing mandatory field")
