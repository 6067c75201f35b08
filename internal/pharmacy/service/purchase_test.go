package service

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/payment"

	"github.com/stretchr/testify/require"
)

func TestCheckoutNewCard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.seedUser(t, "s3cret-pw", true)
	p := e.seedProduct(t, 1250, 10) // $12.50

	card := validCardDetails()
	res, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
		Lines:   []PurchaseLine{{ProductID: p.ID, Quantity: 2}},
		Method:  domain.PayNewCard,
		NewCard: &card,
		Origin:  "10.0.0.9",
	})
	require.NoError(t, err)

	// $25.00 subtotal, 19% tax $4.75, $29.75 total.
	require.EqualValues(t, 2500, res.SubtotalCents)
	require.EqualValues(t, 475, res.TaxCents)
	require.EqualValues(t, 2975, res.TotalCents)
	require.Equal(t, domain.OrderConfirmed, res.Status)
	require.Regexp(t, regexp.MustCompile(`^FD-\d{14}-\d{4}$`), res.InvoiceNumber)

	t.Run("stock decremented", func(t *testing.T) {
		got, err := e.store.Products().GetProductByID(ctx, p.ID)
		require.NoError(t, err)
		require.EqualValues(t, 8, got.Stock)
	})

	t.Run("invoice persisted with lines", func(t *testing.T) {
		inv, err := e.store.Invoices().GetInvoiceByOrderID(ctx, res.OrderID)
		require.NoError(t, err)
		require.Equal(t, res.InvoiceNumber, inv.Number)
		require.Len(t, inv.Lines, 1)
		require.EqualValues(t, 2, inv.Lines[0].Quantity)
		require.EqualValues(t, 1250, inv.Lines[0].UnitPriceCents)
		require.EqualValues(t, 2500, inv.Lines[0].TotalCents)
	})

	t.Run("completion audited", func(t *testing.T) {
		events, err := e.store.AuditEvents().ListByActor(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, domain.AuditPurchaseCompleted, events[0].Action)
	})

	t.Run("one-off new card was not persisted", func(t *testing.T) {
		cards, err := e.cards.ListCards(ctx, u.ID)
		require.NoError(t, err)
		require.Empty(t, cards)
	})
}

func TestCheckoutSaveCardDuringPurchase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, secret := e.seedUser(t, "s3cret-pw", true)
	p := e.seedProduct(t, 1000, 5)

	card := validCardDetails()

	t.Run("saving requires a fresh code", func(t *testing.T) {
		_, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
			Lines:    []PurchaseLine{{ProductID: p.ID, Quantity: 1}},
			Method:   domain.PayNewCard,
			NewCard:  &card,
			SaveCard: true,
		})
		require.ErrorIs(t, err, domain.ErrAuthentication)
	})

	res, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
		Lines:    []PurchaseLine{{ProductID: p.ID, Quantity: 1}},
		Method:   domain.PayNewCard,
		NewCard:  &card,
		SaveCard: true,
		Code:     e.code(t, secret),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)

	cards, err := e.cards.ListCards(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "0366", cards[0].Last4)
}

func TestCheckoutStoredCard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, secret := e.seedUser(t, "s3cret-pw", true)
	other, otherSecret := e.seedUser(t, "s3cret-pw", true)
	p := e.seedProduct(t, 1000, 5)

	saved, err := e.cards.SaveCard(ctx, u.ID, e.code(t, secret), validCardDetails(), "")
	require.NoError(t, err)

	t.Run("requires a fresh code", func(t *testing.T) {
		_, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
			Lines:        []PurchaseLine{{ProductID: p.ID, Quantity: 1}},
			Method:       domain.PayStoredCard,
			StoredCardID: saved.ID,
			Code:         "000000",
		})
		require.ErrorIs(t, err, domain.ErrAuthentication)
	})

	res, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
		Lines:        []PurchaseLine{{ProductID: p.ID, Quantity: 1}},
		Method:       domain.PayStoredCard,
		StoredCardID: saved.ID,
		Code:         e.code(t, secret),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1190, res.TotalCents)

	t.Run("someone else's card is an audited authentication failure", func(t *testing.T) {
		_, err := e.purchases.Checkout(ctx, other.ID, PurchaseRequest{
			Lines:        []PurchaseLine{{ProductID: p.ID, Quantity: 1}},
			Method:       domain.PayStoredCard,
			StoredCardID: saved.ID,
			Code:         e.code(t, otherSecret),
			Origin:       "10.0.0.7",
		})
		require.ErrorIs(t, err, domain.ErrAuthentication)

		events, err := e.store.AuditEvents().ListByActor(ctx, other.ID)
		require.NoError(t, err)
		require.NotEmpty(t, events)
		require.Equal(t, domain.AuditCardAccessDenied, events[0].Action)
		require.Equal(t, "10.0.0.7", events[0].Origin)

		got, err := e.store.Products().GetProductByID(ctx, p.ID)
		require.NoError(t, err)
		require.EqualValues(t, 4, got.Stock, "denied card access must not reach the charge")
	})
}

func TestCheckoutTwoLineOrderTotals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, secret := e.seedUser(t, "s3cret-pw", true)
	prodA := e.seedProduct(t, 1000, 10) // $10.00
	prodB := e.seedProduct(t, 500, 10)  // $5.00

	saved, err := e.cards.SaveCard(ctx, u.ID, e.code(t, secret), validCardDetails(), "")
	require.NoError(t, err)

	res, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
		Lines: []PurchaseLine{
			{ProductID: prodA.ID, Quantity: 2},
			{ProductID: prodB.ID, Quantity: 1},
		},
		Method:       domain.PayStoredCard,
		StoredCardID: saved.ID,
		Code:         e.code(t, secret),
	})
	require.NoError(t, err)

	require.EqualValues(t, 2500, res.SubtotalCents)
	require.EqualValues(t, 475, res.TaxCents)
	require.EqualValues(t, 2975, res.TotalCents)
	require.Regexp(t, regexp.MustCompile(`^FD-\d{14}-\d{4}$`), res.InvoiceNumber)

	inv, err := e.store.Invoices().GetInvoiceByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 2)
}

func TestCheckoutPaymentDeclinedLeavesNoTrace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.seedUser(t, "s3cret-pw", true)
	p := e.seedProduct(t, 1000, 5)

	e.gateway.Decline = func(req payment.ChargeRequest) string { return "insufficient funds" }

	card := validCardDetails()
	_, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
		Lines:   []PurchaseLine{{ProductID: p.ID, Quantity: 3}},
		Method:  domain.PayNewCard,
		NewCard: &card,
	})
	require.ErrorIs(t, err, domain.ErrPaymentDeclined)

	got, err := e.store.Products().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, got.Stock, "declined payment must not touch stock")

	orders, err := e.store.Orders().ListOrdersByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.seedUser(t, "s3cret-pw", true)
	p := e.seedProduct(t, 1000, 1)

	card := validCardDetails()
	_, err := e.purchases.Checkout(ctx, u.ID, PurchaseRequest{
		Lines:   []PurchaseLine{{ProductID: p.ID, Quantity: 2}},
		Method:  domain.PayNewCard,
		NewCard: &card,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := e.store.Products().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Stock)
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.seedProduct(t, 1000, 1)

	const buyers = 4
	users := make([]domain.User, buyers)
	for i := range users {
		users[i], _ = e.seedUser(t, "s3cret-pw", true)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			card := validCardDetails()
			_, errs[i] = e.purchases.Checkout(ctx, users[i].ID, PurchaseRequest{
				Lines:   []PurchaseLine{{ProductID: p.ID, Quantity: 1}},
				Method:  domain.PayNewCard,
				NewCard: &card,
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
	}
	require.Equal(t, 1, wins, "exactly one buyer gets the last unit")

	got, err := e.store.Products().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.Stock)
}

func TestCheckoutValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.seedUser(t, "s3cret-pw", true)
	p := e.seedProduct(t, 1000, 5)
	card := validCardDetails()

	cases := []struct {
		name string
		req  PurchaseRequest
	}{
		{"no lines", PurchaseRequest{Method: domain.PayNewCard, NewCard: &card}},
		{"zero quantity", PurchaseRequest{
			Lines: []PurchaseLine{{ProductID: p.ID, Quantity: 0}}, Method: domain.PayNewCard, NewCard: &card}},
		{"duplicate product", PurchaseRequest{
			Lines:  []PurchaseLine{{ProductID: p.ID, Quantity: 1}, {ProductID: p.ID, Quantity: 1}},
			Method: domain.PayNewCard, NewCard: &card}},
		{"unknown product", PurchaseRequest{
			Lines: []PurchaseLine{{ProductID: "nope", Quantity: 1}}, Method: domain.PayNewCard, NewCard: &card}},
		{"missing card details", PurchaseRequest{
			Lines: []PurchaseLine{{ProductID: p.ID, Quantity: 1}}, Method: domain.PayNewCard}},
		{"unknown method", PurchaseRequest{
			Lines: []PurchaseLine{{ProductID: p.ID, Quantity: 1}}, Method: "cheque", NewCard: &card}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.purchases.Checkout(ctx, u.ID, tc.req)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
