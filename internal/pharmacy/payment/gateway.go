// Package payment abstracts the card charging backend. Checkout talks to a
// Gateway; production wires a real processor, everything else uses the
// Simulator.
package payment

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

// ChargeRequest carries everything the processor needs for one charge.
// CardNumber is plaintext here and must never be persisted or logged.
type ChargeRequest struct {
	CardNumber  string
	Holder      string
	AmountCents int64
	Reference   string // order correlation id
}

// ChargeResult reports the processor's decision. Authorized=false with a
// nil error is a decline, not a transport failure.
type ChargeResult struct {
	Authorized    bool
	TransactionID string
	Reason        string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Simulator is an in-process Gateway. By default it authorizes everything;
// a Decline hook lets tests and demos force failures per request.
type Simulator struct {
	// Decline, when set, is consulted per charge. Return a non-empty
	// reason to decline that request.
	Decline func(req ChargeRequest) string

	seq atomic.Int64
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if req.AmountCents <= 0 {
		return ChargeResult{}, fmt.Errorf("%w: charge amount must be positive", domain.ErrValidation)
	}

	if s.Decline != nil {
		if reason := s.Decline(req); reason != "" {
			return ChargeResult{Authorized: false, Reason: reason}, nil
		}
	}

	return ChargeResult{
		Authorized:    true,
		TransactionID: fmt.Sprintf("sim-%06d", s.seq.Add(1)),
	}, nil
}
