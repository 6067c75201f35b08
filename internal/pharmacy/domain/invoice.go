package domain

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// TaxRatePercent is the fixed sales tax applied to every invoice.
const TaxRatePercent = 19

type InvoiceStatus string

const InvoiceIssued InvoiceStatus = "issued"

// Invoice is 1:1 with an Order and created in the same transaction.
type Invoice struct {
	ID            string
	OrderID       string
	Number        string // human-readable, unique; distinct from ID
	Status        InvoiceStatus
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	Lines         []InvoiceLine
	CreatedAt     time.Time
}

type InvoiceLine struct {
	ProductID      string
	Quantity       int64
	UnitPriceCents int64
	TotalCents     int64
}

// ComputeTax returns the tax on a subtotal in cents, truncating fractional
// cents.
func ComputeTax(subtotalCents int64) int64 {
	return subtotalCents * TaxRatePercent / 100
}

// NewInvoiceNumber builds a `FD-{YYYYMMDDHHMMSS}-{NNNN}` number from the
// supplied clock value and random source. Uniqueness is enforced by the
// store; the 4-digit suffix keeps same-second collisions unlikely.
func NewInvoiceNumber(now time.Time, rand io.Reader) (string, error) {
	var buf [2]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return "", fmt.Errorf("invoice number suffix: %w", err)
	}
	suffix := binary.BigEndian.Uint16(buf[:]) % 10000

	return fmt.Sprintf("FD-%s-%04d", now.UTC().Format("20060102150405"), suffix), nil
}
