package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned when the wire discriminant does not name a
// known event variant. Payloads with unknown tags are rejected, never
// coerced.
var ErrUnknownType = errors.New("unknown event type")

// Marshal serializes an event for the wire, stamping the discriminant
// so the payload is self-describing.
func Marshal(e Event) ([]byte, error) {
	switch ev := e.(type) {
	case *UserEvent:
		ev.Type = TypeUser
	case *BusinessEvent:
		ev.Type = TypeBusiness
	case *SystemEvent:
		ev.Type = TypeSystem
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, e)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return data, nil
}

// Unmarshal decodes a wire payload into the variant named by its
// discriminant and normalizes the envelope defaults.
func Unmarshal(data []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var e Event
	switch probe.Type {
	case TypeUser:
		e = &UserEvent{}
	case TypeBusiness:
		e = &BusinessEvent{}
	case TypeSystem:
		e = &SystemEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}

	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.Type, err)
	}
	e.Normalize()
	return e, nil
}
