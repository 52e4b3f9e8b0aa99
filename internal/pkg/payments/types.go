package payments

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Event types this core understands. Anything else is recorded and skipped.
const (
	EventPaymentSucceeded      = "payment_intent.succeeded"
	EventPaymentFailed         = "payment_intent.payment_failed"
	EventPaymentCanceled       = "payment_intent.canceled"
	EventPaymentRequiresAction = "payment_intent.requires_action"
	EventPaymentProcessing     = "payment_intent.processing"
	EventPaymentMethodAttached = "payment_method.attached"
	EventCustomerCreated       = "customer.created"
	EventCustomerUpdated       = "customer.updated"
)

// Event is the provider's webhook envelope.
type Event struct {
	ID      string    `json:"id" validate:"required"`
	Type    string    `json:"type" validate:"required"`
	Created int64     `json:"created"`
	Data    EventData `json:"data"`
}

// EventData wraps the resource the event describes.
type EventData struct {
	Object IntentPayload `json:"object"`
}

// IntentPayload is the payment-intent resource embedded in payment events.
// Customer and payment-method events carry a different object shape; for
// those the intent fields are simply empty.
type IntentPayload struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	ReceiptEmail     string            `json:"receipt_email"`
	LastPaymentError *PaymentError     `json:"last_payment_error,omitempty"`
	Metadata         map[string]string `json:"metadata"`
}

// PaymentError is the provider's failure description on a payment intent.
type PaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

// ParseEvent decodes and validates a raw webhook payload.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if err := validate.Struct(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

// OrderID resolves the order this event belongs to from the intent metadata.
func (e *Event) OrderID() (uint, bool) {
	raw, ok := e.Data.Object.Metadata["order_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ErrorMessage extracts the provider's failure description, if any.
func (p *IntentPayload) ErrorMessage() string {
	if p.LastPaymentError == nil {
		return ""
	}
	if p.LastPaymentError.Message != "" {
		return p.LastPaymentError.Message
	}
	return p.LastPaymentError.Code
}
