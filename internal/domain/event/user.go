package event

import (
	"fmt"
	"regexp"
)

// Actions a user event may carry.
var UserActions = []string{
	"LOGIN", "LOGOUT", "PAGE_VIEW", "SEARCH", "CLICK",
	"PURCHASE", "BROWSE", "REGISTER", "UPDATE_PROFILE",
}

var ipAddressRe = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$|^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`)

// UserEvent records a single user activity such as a login, a page view
// or a purchase.
type UserEvent struct {
	Envelope

	UserID     string         `json:"userId"`
	Action     string         `json:"action"`
	SessionID  string         `json:"sessionId,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Location   string         `json:"location,omitempty"`
	DeviceType string         `json:"deviceType,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (e *UserEvent) EventType() string { return TypeUser }

func (e *UserEvent) IsValid() bool {
	return e.envelopeValid() && e.UserID != "" && e.Action != ""
}

func (e *UserEvent) Describe() string {
	return fmt.Sprintf("User %s performed action %s", e.UserID, e.Action)
}

func (e *UserEvent) Key() string { return e.UserID }

func (e *UserEvent) Normalize() { e.Envelope.normalize() }

// Validate performs the format checks applied at the HTTP boundary:
// enum membership and the IP address pattern. Optional fields are only
// checked when set.
func (e *UserEvent) Validate() error {
	if !e.IsValid() {
		return fmt.Errorf("user event missing required fields (userId, action, source)")
	}
	if !contains(UserActions, e.Action) {
		return fmt.Errorf("invalid user action %q", e.Action)
	}
	if e.IPAddress != "" && !ipAddressRe.MatchString(e.IPAddress) {
		return fmt.Errorf("invalid ip address format %q", e.IPAddress)
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
