package domain

import "errors"

// Error kinds for expected business failures. Services wrap these with
// detail via fmt.Errorf("%w: ...", ...) so callers can classify outcomes
// with errors.Is without parsing messages.
var (
	// ErrValidation reports malformed input. Nothing was mutated.
	ErrValidation = errors.New("invalid_input")

	// ErrAuthentication reports a failed password, one-time code, or card
	// ownership check. Always paired with an audit event.
	ErrAuthentication = errors.New("authentication_failed")

	// ErrInsufficientStock reports that the conditional stock decrement
	// matched no rows. The purchase aborts entirely.
	ErrInsufficientStock = errors.New("insufficient_stock")

	// ErrPaymentDeclined reports that the payment gateway declined the
	// charge, before any stock or invoice mutation.
	ErrPaymentDeclined = errors.New("payment_declined")

	// ErrIntegrity reports a store failure after payment succeeded. Funds
	// were notionally captured, so this must stay distinct from
	// ErrPaymentDeclined; the attempt is audited.
	ErrIntegrity = errors.New("purchase_integrity_failure")
)
