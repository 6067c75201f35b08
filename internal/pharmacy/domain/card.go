package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// CardBrand is the prefix-based classification of a card number. It says
// nothing about issuer validity, only well-formedness.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandUnknown    CardBrand = "unknown"
)

// Card is a stored payment card. The full number exists only inside
// NumberEnc; everything else is safe to display.
type Card struct {
	ID        string
	UserID    string
	Last4     string
	Brand     CardBrand
	Holder    string
	ExpMonth  int
	ExpYear   int
	NumberEnc []byte // AES-GCM, nonce prepended
	IsPrimary bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CardDetails is the value object callers submit when adding a card or
// paying with a new one. It never touches storage in this form.
type CardDetails struct {
	Number    string
	Holder    string
	CVV       string
	ExpMonth  int
	ExpYear   int
	IsPrimary bool
}

// Validate checks every field before anything reaches the gateway or the
// store. now anchors the expiry check.
func (d CardDetails) Validate(now time.Time) error {
	if err := ValidateCardNumber(d.Number); err != nil {
		return err
	}
	if strings.TrimSpace(d.Holder) == "" {
		return fmt.Errorf("%w: card holder name is required", ErrValidation)
	}
	for _, r := range d.Holder {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '.' && r != '-' && r != '\'' {
			return fmt.Errorf("%w: card holder name contains invalid characters", ErrValidation)
		}
	}
	if len(d.CVV) < 3 || len(d.CVV) > 4 || !allDigits(d.CVV) {
		return fmt.Errorf("%w: CVV must be 3 or 4 digits", ErrValidation)
	}
	if d.ExpMonth < 1 || d.ExpMonth > 12 {
		return fmt.Errorf("%w: expiry month out of range", ErrValidation)
	}
	if expired(d.ExpMonth, d.ExpYear, now) {
		return fmt.Errorf("%w: card is expired", ErrValidation)
	}
	return nil
}

// Last4 returns the display suffix of the card number.
func (d CardDetails) Last4() string {
	if len(d.Number) < 4 {
		return d.Number
	}
	return d.Number[len(d.Number)-4:]
}

// ValidateCardNumber requires exactly 16 digits and a passing Luhn
// checksum.
func ValidateCardNumber(number string) error {
	if len(number) != 16 || !allDigits(number) {
		return fmt.Errorf("%w: card number must be exactly 16 digits", ErrValidation)
	}
	if !luhnValid(number) {
		return fmt.Errorf("%w: card number failed checksum", ErrValidation)
	}
	return nil
}

// DetectBrand classifies a card number by its leading digit.
func DetectBrand(number string) CardBrand {
	if number == "" {
		return BrandUnknown
	}
	switch number[0] {
	case '4':
		return BrandVisa
	case '5', '2':
		return BrandMastercard
	case '3':
		return BrandAmex
	default:
		return BrandUnknown
	}
}

// luhnValid doubles every second digit from the right, subtracts 9 when the
// doubling overflows a single digit, and requires the sum to be 0 mod 10.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// expired treats a card as valid through the last day of its expiry month.
func expired(month, year int, now time.Time) bool {
	endOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0)
	return !now.Before(endOfMonth)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
