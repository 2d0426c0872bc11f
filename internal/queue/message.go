package queue

import (
	"encoding/json"
	"fmt"

	"github.com/kursadbilgin/order-notifier/internal/domain"
)

// OrderEvent is the broker payload published once per created order.
// Fields are named so older consumers keep working when optional fields
// are added later.
type OrderEvent struct {
	OrderID        int64  `json:"order_id"`
	Item           string `json:"item"`
	Amount         int64  `json:"amount"`
	RecipientPhone string `json:"recipient_phone"`
}

func (e OrderEvent) Validate() error {
	if e.OrderID <= 0 {
		return fmt.Errorf("order_id is required")
	}
	if e.Item == "" {
		return fmt.Errorf("item is required")
	}
	if e.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if e.RecipientPhone == "" {
		return fmt.Errorf("recipient_phone is required")
	}
	if !domain.ValidPhoneNumber(e.RecipientPhone) {
		return fmt.Errorf("recipient_phone %q is not E.164", e.RecipientPhone)
	}
	return nil
}

// DecodeError marks a payload that can never be processed. It carries the raw
// body so a dead-lettered message can be diagnosed without redelivery.
type DecodeError struct {
	Reason string
	Body   []byte
	Cause  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("decode order event: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode order event: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Permanent reports that a malformed payload will never decode on redelivery.
func (e *DecodeError) Permanent() bool { return true }

// EncodeOrderEvent serializes a validated event to its wire form.
func EncodeOrderEvent(event OrderEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order event: %w", err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return payload, nil
}

// DecodeOrderEvent parses and validates a wire payload. All failures come back
// as *DecodeError; it never panics on malformed input.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return OrderEvent{}, &DecodeError{Reason: "invalid JSON", Body: body, Cause: err}
	}
	if err := event.Validate(); err != nil {
		return OrderEvent{}, &DecodeError{Reason: err.Error(), Body: body}
	}
	return event, nil
}
