package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserEventValidity(t *testing.T) {
	tests := []struct {
		name  string
		event UserEvent
		valid bool
	}{
		{
			name:  "all required fields",
			event: UserEvent{Envelope: NewEnvelope("web-app"), UserID: "user123", Action: "LOGIN"},
			valid: true,
		},
		{
			name:  "missing user id",
			event: UserEvent{Envelope: NewEnvelope("web-app"), Action: "LOGIN"},
			valid: false,
		},
		{
			name:  "missing action",
			event: UserEvent{Envelope: NewEnvelope("web-app"), UserID: "user123"},
			valid: false,
		},
		{
			name:  "missing source",
			event: UserEvent{Envelope: Envelope{ID: "x", Version: "1.0"}, UserID: "user123", Action: "LOGIN"},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.event.IsValid())
		})
	}
}

func TestBusinessEventValidity(t *testing.T) {
	base := func() BusinessEvent {
		return BusinessEvent{
			Envelope:        NewEnvelope("order-service"),
			OrderID:         "order123",
			CustomerID:      "customer456",
			TransactionType: "ORDER_CREATED",
			Amount:          99.99,
		}
	}

	ev := base()
	assert.True(t, ev.IsValid())

	zero := base()
	zero.Amount = 0
	assert.False(t, zero.IsValid(), "zero amount must be invalid")

	negative := base()
	negative.Amount = -1.50
	assert.False(t, negative.IsValid(), "negative amount must be invalid")

	noOrder := base()
	noOrder.OrderID = ""
	assert.False(t, noOrder.IsValid())

	noCustomer := base()
	noCustomer.CustomerID = ""
	assert.False(t, noCustomer.IsValid())

	noType := base()
	noType.TransactionType = ""
	assert.False(t, noType.IsValid())
}

func TestSystemEventValidityAndCriticality(t *testing.T) {
	ev := SystemEvent{
		Envelope:   NewEnvelope("monitoring"),
		ServiceID:  "service123",
		SystemType: "ERROR",
		Severity:   "HIGH",
		Message:    "disk usage above threshold",
	}

	assert.True(t, ev.IsValid())
	assert.True(t, ev.IsCritical())
	assert.True(t, ev.IsError())
	assert.Contains(t, ev.Describe(), "ERROR")

	ev.Severity = "LOW"
	assert.False(t, ev.IsCritical())

	ev.Message = ""
	assert.False(t, ev.IsValid())
}

func TestNormalizeFillsDefaults(t *testing.T) {
	ev := &BusinessEvent{
		OrderID:         "order123",
		CustomerID:      "customer456",
		TransactionType: "ORDER_CREATED",
		Amount:          10,
	}
	ev.Normalize()

	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, DefaultVersion, ev.Version)
	assert.Equal(t, DefaultCurrency, ev.Currency)
}

func TestNormalizeKeepsExistingFields(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := &UserEvent{
		Envelope: Envelope{ID: "fixed-id", Timestamp: ts, Source: "web-app", Version: "2.1"},
		UserID:   "user123",
		Action:   "LOGIN",
	}
	ev.Normalize()

	assert.Equal(t, "fixed-id", ev.ID)
	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, "2.1", ev.Version)
}

func TestBusinessEventRoundTrip(t *testing.T) {
	src := &BusinessEvent{
		Envelope:        NewEnvelope("order-service"),
		OrderID:         "order123",
		CustomerID:      "customer456",
		TransactionType: "PAYMENT_COMPLETED",
		Amount:          99.99,
		Currency:        "USD",
		PaymentMethod:   "credit_card",
		OrderStatus:     "CONFIRMED",
		OrderDetails:    map[string]any{"items": float64(3)},
	}

	data, err := Marshal(src)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	got, ok := decoded.(*BusinessEvent)
	require.True(t, ok)
	assert.Equal(t, src.ID, got.ID)
	assert.Equal(t, "order123", got.OrderID)
	assert.Equal(t, "customer456", got.CustomerID)
	assert.Equal(t, 99.99, got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "PAYMENT_COMPLETED", got.TransactionType)
	assert.Equal(t, src.OrderDetails, got.OrderDetails)
	assert.Contains(t, got.Describe(), "order123")
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"AUDIT_EVENT","id":"x"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestUnmarshalDispatchesOnDiscriminant(t *testing.T) {
	user, err := Unmarshal([]byte(`{"type":"USER_EVENT","source":"web-app","userId":"u1","action":"LOGIN"}`))
	require.NoError(t, err)
	assert.IsType(t, &UserEvent{}, user)
	assert.Equal(t, "u1", user.Key())

	sys, err := Unmarshal([]byte(`{"type":"SYSTEM_EVENT","source":"mon","serviceId":"s1","eventType":"ALERT","severity":"CRITICAL","message":"down"}`))
	require.NoError(t, err)
	assert.IsType(t, &SystemEvent{}, sys)
	assert.Equal(t, "s1", sys.Key())
}

func TestValidateEnforcesFormats(t *testing.T) {
	ev := &UserEvent{Envelope: NewEnvelope("web-app"), UserID: "u1", Action: "LOGIN"}
	require.NoError(t, ev.Validate())

	ev.Action = "DANCE"
	assert.Error(t, ev.Validate())

	ev.Action = "LOGIN"
	ev.IPAddress = "not-an-ip"
	assert.Error(t, ev.Validate())

	ev.IPAddress = "192.168.1.10"
	assert.NoError(t, ev.Validate())

	biz := &BusinessEvent{
		Envelope:        NewEnvelope("order-service"),
		OrderID:         "o1",
		CustomerID:      "c1",
		TransactionType: "ORDER_CREATED",
		Amount:          5,
		Currency:        "usd",
	}
	assert.Error(t, biz.Validate())
	biz.Currency = "EUR"
	assert.NoError(t, biz.Validate())
}
