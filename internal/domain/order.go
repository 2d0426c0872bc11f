package domain

import (
	"fmt"
	"time"
)

// Order is the core entity persisted by the order-creation flow.
type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Item        string `gorm:"type:varchar(255);not null"`
	Amount      int64  `gorm:"not null"`
	PhoneNumber string `gorm:"type:varchar(20);not null"`
	CustomerID  int64  `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o *Order) Validate() error {
	if o.Item == "" {
		return fmt.Errorf("%w: item is required", ErrValidation)
	}
	if o.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if o.PhoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	if !ValidPhoneNumber(o.PhoneNumber) {
		return fmt.Errorf("%w: phone number %q is not E.164", ErrValidation, o.PhoneNumber)
	}
	if o.CustomerID <= 0 {
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	return nil
}

// ValidPhoneNumber reports whether s is an E.164 phone number:
// a leading plus followed by 8 to 15 digits.
func ValidPhoneNumber(s string) bool {
	if len(s) < 9 || len(s) > 16 {
		return false
	}
	if s[0] != '+' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RenderOrderNotification builds the customer-facing text for a placed order.
func RenderOrderNotification(item string, amount int64) string {
	return fmt.Sprintf("Your order for %s worth %d has been placed successfully.", item, amount)
}
