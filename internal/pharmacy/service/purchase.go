package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/payment"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/cryptox"
	"github.com/farmadigital/pharmacy/pkg/idx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

type PurchaseLine struct {
	ProductID string
	Quantity  int64
}

type PurchaseRequest struct {
	Lines  []PurchaseLine
	Method domain.PaymentMethod

	// Code is the one-time code. Required when paying with a stored card
	// or persisting a new one; a one-off charge on a new card needs none.
	Code string

	// NewCard carries the card details for PayNewCard. SaveCard stores it
	// for reuse in the same transaction as the order.
	NewCard  *domain.CardDetails
	SaveCard bool

	// StoredCardID selects the card for PayStoredCard.
	StoredCardID string

	Origin string
}

type PurchaseResponse struct {
	OrderID       string
	InvoiceID     string
	InvoiceNumber string
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	Status        domain.OrderStatus
	CreatedAt     time.Time
}

// PurchaseService turns a cart into a paid order with its invoice. Pricing,
// the charge, stock decrements and document writes happen in a fixed
// sequence; everything after the charge shares one transaction so a partial
// purchase can never be observed.
type PurchaseService struct {
	Store   store.Store
	Cipher  *cryptox.CardCipher
	Gateway payment.Gateway

	// Clock and Rand override the real clock and crypto/rand, for tests.
	Clock func() time.Time
	Rand  io.Reader
}

func (s *PurchaseService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *PurchaseService) rand() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.Reader
}

// Checkout executes a purchase end to end.
func (s *PurchaseService) Checkout(ctx context.Context, userID string, req PurchaseRequest) (PurchaseResponse, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	lines, subtotal, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return PurchaseResponse{}, err
	}
	tax := domain.ComputeTax(subtotal)
	total := subtotal + tax

	charge, saveCard, err := s.resolvePayment(ctx, userID, req, now)
	if err != nil {
		return PurchaseResponse{}, err
	}

	orderID := idx.New().String()
	charge.AmountCents = total
	charge.Reference = orderID

	result, err := s.Gateway.Charge(ctx, charge)
	if err != nil {
		return PurchaseResponse{}, fmt.Errorf("payment gateway: %w", err)
	}
	if !result.Authorized {
		l.Info("payment declined",
			slog.String("user_id", userID),
			slog.String("reason", result.Reason),
		)
		return PurchaseResponse{}, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, result.Reason)
	}

	number, err := domain.NewInvoiceNumber(now, s.rand())
	if err != nil {
		return PurchaseResponse{}, err
	}

	order := domain.Order{
		ID:            orderID,
		UserID:        userID,
		Status:        domain.OrderConfirmed,
		PaymentMethod: req.Method,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    total,
		Lines:         lines,
		CreatedAt:     now,
	}
	invoice := domain.Invoice{
		ID:            idx.New().String(),
		OrderID:       orderID,
		Number:        number,
		Status:        domain.InvoiceIssued,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    total,
		CreatedAt:     now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Orders().CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.Orders().CreateOrderLine(ctx, orderID, line); err != nil {
				return err
			}
			if err := tx.Products().DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.Invoices().CreateInvoice(ctx, invoice); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.Invoices().CreateInvoiceLine(ctx, invoice.ID, domain.InvoiceLine{
				ProductID:      line.ProductID,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
				TotalCents:     line.Total(),
			}); err != nil {
				return err
			}
		}
		if saveCard != nil {
			if saveCard.IsPrimary {
				if err := tx.Cards().DemotePrimary(ctx, userID); err != nil {
					return err
				}
			}
			if err := tx.Cards().CreateCard(ctx, *saveCard); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The charge was captured and the transaction rolled back. Leave a
		// trail for reconciliation, then surface the cause.
		emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditPurchaseIntegrity,
			fmt.Sprintf("order %s rolled back after charge %s: %v", orderID, result.TransactionID, err), req.Origin)
		l.Error("purchase rolled back after successful charge",
			slog.String("order_id", orderID),
			slog.String("transaction_id", result.TransactionID),
			slog.Any("error", err),
		)
		if errors.Is(err, domain.ErrInsufficientStock) {
			return PurchaseResponse{}, err
		}
		return PurchaseResponse{}, fmt.Errorf("%w: order %s", domain.ErrIntegrity, orderID)
	}

	if saveCard != nil {
		emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditCardSaved,
			fmt.Sprintf("card %s (%s ****%s) saved during checkout", saveCard.ID, saveCard.Brand, saveCard.Last4), req.Origin)
	}
	emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditPurchaseCompleted,
		fmt.Sprintf("order %s invoiced as %s for %d cents", orderID, number, total), req.Origin)
	l.Info("purchase completed",
		slog.String("user_id", userID),
		slog.String("order_id", orderID),
		slog.String("invoice_number", number),
		slog.Int64("total_cents", total),
	)

	return PurchaseResponse{
		OrderID:       orderID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: number,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    total,
		Status:        order.Status,
		CreatedAt:     now,
	}, nil
}

// priceLines validates the cart and prices it from the catalog. Prices come
// from the store at checkout time, never from the client.
func (s *PurchaseService) priceLines(ctx context.Context, reqLines []PurchaseLine) ([]domain.OrderLine, int64, error) {
	if len(reqLines) == 0 {
		return nil, 0, fmt.Errorf("%w: order has no lines", domain.ErrValidation)
	}

	seen := make(map[string]struct{}, len(reqLines))
	lines := make([]domain.OrderLine, 0, len(reqLines))
	var subtotal int64

	for _, rl := range reqLines {
		if rl.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
		}
		if _, dup := seen[rl.ProductID]; dup {
			return nil, 0, fmt.Errorf("%w: duplicate product %s", domain.ErrValidation, rl.ProductID)
		}
		seen[rl.ProductID] = struct{}{}

		p, err := s.Store.Products().GetProductByID(ctx, rl.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, 0, fmt.Errorf("%w: unknown product %s", domain.ErrValidation, rl.ProductID)
			}
			return nil, 0, err
		}
		if !p.Active {
			return nil, 0, fmt.Errorf("%w: product %s is not for sale", domain.ErrValidation, rl.ProductID)
		}
		// Early stock check; the authoritative one is the conditional
		// decrement inside the transaction.
		if p.Stock < rl.Quantity {
			return nil, 0, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, rl.ProductID)
		}

		line := domain.OrderLine{
			ProductID:      p.ID,
			Quantity:       rl.Quantity,
			UnitPriceCents: p.PriceCents,
		}
		lines = append(lines, line)
		subtotal += line.Total()
	}

	return lines, subtotal, nil
}

// resolvePayment produces the charge request and, for save-on-purchase, the
// card row to persist with the order. Paying with a stored card or storing
// a new one demands a fresh one-time code; a one-off new-card charge that
// persists nothing does not.
func (s *PurchaseService) resolvePayment(ctx context.Context, userID string, req PurchaseRequest, now time.Time) (payment.ChargeRequest, *domain.Card, error) {
	switch req.Method {
	case domain.PayNewCard:
		if req.NewCard == nil {
			return payment.ChargeRequest{}, nil, fmt.Errorf("%w: card details are required", domain.ErrValidation)
		}
		if err := req.NewCard.Validate(now); err != nil {
			return payment.ChargeRequest{}, nil, err
		}

		charge := payment.ChargeRequest{
			CardNumber: req.NewCard.Number,
			Holder:     req.NewCard.Holder,
		}
		if !req.SaveCard {
			return charge, nil, nil
		}

		if err := verifyActiveCode(ctx, s.Store, userID, req.Code, req.Origin, now); err != nil {
			return payment.ChargeRequest{}, nil, err
		}
		numberEnc, err := s.Cipher.Encrypt(req.NewCard.Number)
		if err != nil {
			return payment.ChargeRequest{}, nil, fmt.Errorf("encrypt card number: %w", err)
		}
		card := domain.Card{
			ID:        idx.New().String(),
			UserID:    userID,
			Last4:     req.NewCard.Last4(),
			Brand:     domain.DetectBrand(req.NewCard.Number),
			Holder:    req.NewCard.Holder,
			ExpMonth:  req.NewCard.ExpMonth,
			ExpYear:   req.NewCard.ExpYear,
			NumberEnc: numberEnc,
			IsPrimary: req.NewCard.IsPrimary,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return charge, &card, nil

	case domain.PayStoredCard:
		if req.StoredCardID == "" {
			return payment.ChargeRequest{}, nil, fmt.Errorf("%w: stored card id is required", domain.ErrValidation)
		}
		if err := verifyActiveCode(ctx, s.Store, userID, req.Code, req.Origin, now); err != nil {
			return payment.ChargeRequest{}, nil, err
		}

		card, err := s.Store.Cards().GetCardByID(ctx, req.StoredCardID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return payment.ChargeRequest{}, nil, fmt.Errorf("%w: card not found", domain.ErrValidation)
			}
			return payment.ChargeRequest{}, nil, err
		}
		if card.UserID != userID {
			// Reaching someone else's card is an authentication failure,
			// not bad input. The wire message stays as vague as not-found
			// so card ids are not enumerable, but the attempt is recorded.
			emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditCardAccessDenied,
				fmt.Sprintf("payment attempt with card %s belonging to another user", req.StoredCardID), req.Origin)
			return payment.ChargeRequest{}, nil, fmt.Errorf("%w: card not found", domain.ErrAuthentication)
		}

		number, err := s.Cipher.Decrypt(card.NumberEnc)
		if err != nil {
			return payment.ChargeRequest{}, nil, fmt.Errorf("decrypt card number: %w", err)
		}
		return payment.ChargeRequest{CardNumber: number, Holder: card.Holder}, nil, nil

	default:
		return payment.ChargeRequest{}, nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, req.Method)
	}
}
