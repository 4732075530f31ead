package dispatcher

import "fmt"

// ValidationError is returned synchronously when an event fails its
// structural checks. Nothing is published and no audit record is
// written; the event is rejected before the boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s", e.Reason)
}

// SerializationError is returned synchronously when an event cannot be
// encoded for the wire. Treated the same as a validation failure.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize event: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
