package event

import "fmt"

// Kinds of system operational events.
var SystemEventTypes = []string{
	"HEALTH_CHECK", "ALERT", "METRIC_UPDATE", "SERVICE_START",
	"SERVICE_STOP", "ERROR", "WARNING", "INFO", "DEBUG",
}

// Severity levels, most severe first.
var Severities = []string{"CRITICAL", "HIGH", "MEDIUM", "LOW", "INFO"}

// Deployment environments.
var Environments = []string{"DEVELOPMENT", "STAGING", "PRODUCTION", "TEST"}

// SystemEvent records an operational occurrence reported by a service:
// health checks, alerts, errors.
type SystemEvent struct {
	Envelope

	ServiceID   string         `json:"serviceId"`
	SystemType  string         `json:"eventType"`
	Severity    string         `json:"severity"`
	Message     string         `json:"message"`
	Component   string         `json:"component,omitempty"`
	Environment string         `json:"environment,omitempty"`
	HostID      string         `json:"hostId,omitempty"`
	ProcessID   string         `json:"processId,omitempty"`
	StackTrace  string         `json:"stackTrace,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (e *SystemEvent) EventType() string { return TypeSystem }

func (e *SystemEvent) IsValid() bool {
	return e.envelopeValid() &&
		e.ServiceID != "" && e.SystemType != "" && e.Severity != "" && e.Message != ""
}

func (e *SystemEvent) Describe() string {
	return fmt.Sprintf("System event from %s: %s [%s] - %s",
		e.ServiceID, e.SystemType, e.Severity, e.Message)
}

func (e *SystemEvent) Key() string { return e.ServiceID }

func (e *SystemEvent) Normalize() { e.Envelope.normalize() }

// IsCritical reports whether the event requires immediate attention.
func (e *SystemEvent) IsCritical() bool {
	return e.Severity == "CRITICAL" || e.Severity == "HIGH"
}

// IsError reports whether the event describes an error condition.
func (e *SystemEvent) IsError() bool {
	return e.SystemType == "ERROR" || e.Severity == "CRITICAL"
}

// Validate performs the format checks applied at the HTTP boundary.
func (e *SystemEvent) Validate() error {
	if !e.IsValid() {
		return fmt.Errorf("system event missing required fields (serviceId, eventType, severity, message, source)")
	}
	if !contains(SystemEventTypes, e.SystemType) {
		return fmt.Errorf("invalid system event type %q", e.SystemType)
	}
	if !contains(Severities, e.Severity) {
		return fmt.Errorf("invalid severity level %q", e.Severity)
	}
	if e.Environment != "" && !contains(Environments, e.Environment) {
		return fmt.Errorf("invalid environment %q", e.Environment)
	}
	return nil
}
