// Package projection holds the denormalized per-variant rows written
// by the consumer. One row exists per successfully processed event;
// failed attempts never produce a projection.
package projection

import (
	"encoding/json"
	"time"

	"github.com/Jeffrey-Xu/kafka/internal/domain/event"
)

// UserActivity is the persisted form of a user event.
type UserActivity struct {
	UserID      string
	Action      string
	SessionID   string
	IPAddress   string
	UserAgent   string
	Location    string
	DeviceType  string
	Metadata    []byte
	CreatedAt   time.Time
	ProcessedAt time.Time
}

// BusinessTransaction is the persisted form of a business event.
type BusinessTransaction struct {
	OrderID         string
	CustomerID      string
	TransactionType string
	Amount          float64
	Currency        string
	PaymentMethod   string
	ShippingAddress string
	BillingAddress  string
	OrderStatus     string
	OrderDetails    []byte
	CreatedAt       time.Time
	ProcessedAt     time.Time
}

// SystemOperational is the persisted form of a system event.
type SystemOperational struct {
	ServiceID   string
	SystemType  string
	Severity    string
	Message     string
	Component   string
	Environment string
	HostID      string
	ProcessID   string
	StackTrace  string
	Metadata    []byte
	CreatedAt   time.Time
	ProcessedAt time.Time
}

// FromUserEvent maps an event onto its projection row. CreatedAt comes
// from the event, ProcessedAt is the wall clock at persistence.
func FromUserEvent(ev *event.UserEvent, processedAt time.Time) *UserActivity {
	return &UserActivity{
		UserID:      ev.UserID,
		Action:      ev.Action,
		SessionID:   ev.SessionID,
		IPAddress:   ev.IPAddress,
		UserAgent:   ev.UserAgent,
		Location:    ev.Location,
		DeviceType:  ev.DeviceType,
		Metadata:    marshalMeta(ev.Metadata),
		CreatedAt:   ev.Timestamp,
		ProcessedAt: processedAt,
	}
}

func FromBusinessEvent(ev *event.BusinessEvent, processedAt time.Time) *BusinessTransaction {
	return &BusinessTransaction{
		OrderID:         ev.OrderID,
		CustomerID:      ev.CustomerID,
		TransactionType: ev.TransactionType,
		Amount:          ev.Amount,
		Currency:        ev.Currency,
		PaymentMethod:   ev.PaymentMethod,
		ShippingAddress: ev.ShippingAddress,
		BillingAddress:  ev.BillingAddress,
		OrderStatus:     ev.OrderStatus,
		OrderDetails:    marshalMeta(ev.OrderDetails),
		CreatedAt:       ev.Timestamp,
		ProcessedAt:     processedAt,
	}
}

func FromSystemEvent(ev *event.SystemEvent, processedAt time.Time) *SystemOperational {
	return &SystemOperational{
		ServiceID:   ev.ServiceID,
		SystemType:  ev.SystemType,
		Severity:    ev.Severity,
		Message:     ev.Message,
		Component:   ev.Component,
		Environment: ev.Environment,
		HostID:      ev.HostID,
		ProcessID:   ev.ProcessID,
		StackTrace:  ev.StackTrace,
		Metadata:    marshalMeta(ev.Metadata),
		CreatedAt:   ev.Timestamp,
		ProcessedAt: processedAt,
	}
}

func marshalMeta(m map[string]any) []byte {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}
