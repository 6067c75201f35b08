package domain

import "time"

// Product is a catalog item. Stock never goes negative: the store enforces
// it with a conditional decrement, and the schema backs that up with a
// CHECK constraint.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Stock       int64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
