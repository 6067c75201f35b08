package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
)

// PaymentMethod is the closed set of ways a purchase can be paid.
type PaymentMethod string

const (
	PayNewCard    PaymentMethod = "new_card"
	PayStoredCard PaymentMethod = "stored_card"
)

// ParsePaymentMethod rejects anything outside the closed set.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PayNewCard:
		return PayNewCard, nil
	case PayStoredCard:
		return PayStoredCard, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
	}
}

// Order is created only after payment success, already confirmed.
type Order struct {
	ID            string
	UserID        string
	Status        OrderStatus
	PaymentMethod PaymentMethod
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	Lines         []OrderLine
	CreatedAt     time.Time
}

type OrderLine struct {
	ProductID      string
	Quantity       int64
	UnitPriceCents int64
}

// Total returns the line's extended price.
func (l OrderLine) Total() int64 {
	return l.UnitPriceCents * l.Quantity
}
