package event

import (
	"fmt"
	"regexp"
)

// DefaultCurrency is stamped on business events that omit the currency.
const DefaultCurrency = "USD"

// Kinds of business transactions.
var BusinessEventTypes = []string{
	"ORDER_CREATED", "ORDER_UPDATED", "ORDER_CANCELLED",
	"PAYMENT_INITIATED", "PAYMENT_COMPLETED", "PAYMENT_FAILED",
	"SHIPMENT_CREATED", "SHIPMENT_DISPATCHED", "SHIPMENT_DELIVERED",
	"REFUND_INITIATED", "REFUND_COMPLETED",
}

// Order lifecycle states.
var OrderStatuses = []string{
	"PENDING", "CONFIRMED", "PROCESSING", "SHIPPED",
	"DELIVERED", "CANCELLED", "REFUNDED",
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// BusinessEvent records a business transaction: an order, a payment, a
// shipment or a refund.
type BusinessEvent struct {
	Envelope

	OrderID         string         `json:"orderId"`
	CustomerID      string         `json:"customerId"`
	TransactionType string         `json:"eventType"`
	Amount          float64        `json:"amount"`
	Currency        string         `json:"currency,omitempty"`
	PaymentMethod   string         `json:"paymentMethod,omitempty"`
	ShippingAddress string         `json:"shippingAddress,omitempty"`
	BillingAddress  string         `json:"billingAddress,omitempty"`
	OrderStatus     string         `json:"orderStatus,omitempty"`
	OrderDetails    map[string]any `json:"orderDetails,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

func (e *BusinessEvent) EventType() string { return TypeBusiness }

// IsValid requires the identifying fields and a strictly positive
// amount. Zero or negative amounts are invalid regardless of the other
// fields.
func (e *BusinessEvent) IsValid() bool {
	return e.envelopeValid() &&
		e.OrderID != "" && e.CustomerID != "" && e.TransactionType != "" &&
		e.Amount > 0
}

func (e *BusinessEvent) Describe() string {
	return fmt.Sprintf("Business event %s for order %s (customer: %s, amount: %.2f %s)",
		e.TransactionType, e.OrderID, e.CustomerID, e.Amount, e.Currency)
}

func (e *BusinessEvent) Key() string { return e.OrderID }

func (e *BusinessEvent) Normalize() {
	e.Envelope.normalize()
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
}

// Validate performs the format checks applied at the HTTP boundary.
func (e *BusinessEvent) Validate() error {
	if !e.IsValid() {
		return fmt.Errorf("business event missing required fields (orderId, customerId, eventType, positive amount, source)")
	}
	if !contains(BusinessEventTypes, e.TransactionType) {
		return fmt.Errorf("invalid business event type %q", e.TransactionType)
	}
	if e.Currency != "" && !currencyRe.MatchString(e.Currency) {
		return fmt.Errorf("currency must be a 3-letter ISO code, got %q", e.Currency)
	}
	if e.OrderStatus != "" && !contains(OrderStatuses, e.OrderStatus) {
		return fmt.Errorf("invalid order status %q", e.OrderStatus)
	}
	return nil
}
