package event

import (
	"time"

	"github.com/google/uuid"
)

// Wire discriminant values. Every serialized event carries one of these
// in its "type" field.
const (
	TypeUser     = "USER_EVENT"
	TypeBusiness = "BUSINESS_EVENT"
	TypeSystem   = "SYSTEM_EVENT"
)

// DefaultVersion is the schema version stamped on events that do not
// declare one.
const DefaultVersion = "1.0"

// Event is the closed set of message kinds that travel through the
// pipeline. Concrete types: UserEvent, BusinessEvent, SystemEvent.
type Event interface {
	// EventType returns the wire discriminant for this variant.
	EventType() string

	// IsValid reports whether the required fields of the variant are
	// present. It checks structure only and never consults external
	// state.
	IsValid() bool

	// Describe returns a short human-readable summary used in logs.
	Describe() string

	// Key returns the business key used to partition the event in the
	// log (user id, order id or service id).
	Key() string

	// Normalize fills generated and defaulted envelope fields on an
	// event that was built or decoded without them. Fields that are
	// already set are left alone.
	Normalize()

	// Meta exposes the shared envelope fields.
	Meta() *Envelope
}

// Envelope holds the fields shared by all event variants. The Type
// field is the wire discriminant and is stamped by Marshal.
type Envelope struct {
	Type          string    `json:"type"`
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// NewEnvelope returns an envelope with a generated id, the current
// timestamp and the default schema version.
func NewEnvelope(source string) Envelope {
	return Envelope{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   DefaultVersion,
	}
}

// Meta exposes the envelope; promoted to every variant through
// embedding.
func (e *Envelope) Meta() *Envelope { return e }

func (e *Envelope) normalize() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Version == "" {
		e.Version = DefaultVersion
	}
}

// envelopeValid reports whether the shared fields required of every
// event are present.
func (e *Envelope) envelopeValid() bool {
	return e.Source != "" && e.Version != ""
}
