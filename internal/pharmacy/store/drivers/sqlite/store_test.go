package sqlite

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.New().String(),
		Email:        idx.New().String() + "@example.com",
		Name:         "Test User",
		PasswordHash: "$argon2id$...",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)

	got, err := s.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, domain.RoleCustomer, got.Role)
	require.False(t, got.MFAEnabled)

	require.NoError(t, s.Users().SetMFAEnabled(ctx, u.ID, true))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.MFAEnabled)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})
}

func TestCredentialsSecretImmutableOnceActivated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)
	now := time.Now().UTC().Truncate(time.Second)

	c := domain.TwoFactorCredential{
		ID:        idx.New().String(),
		UserID:    u.ID,
		Secret:    "OLDSECRET",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Credentials().Create(ctx, c))

	// Pending credentials may be re-provisioned.
	require.NoError(t, s.Credentials().ReplaceSecret(ctx, u.ID, "NEWSECRET"))

	require.NoError(t, s.Credentials().Activate(ctx, u.ID))

	// Activated ones may not.
	require.ErrorIs(t, s.Credentials().ReplaceSecret(ctx, u.ID, "EVIL"), store.ErrNotFound)

	got, err := s.Credentials().GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Activated)
	require.Equal(t, "NEWSECRET", got.Secret)
}

func TestCredentialsFailureState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)
	now := time.Now().UTC().Truncate(time.Second)

	c := domain.TwoFactorCredential{
		ID: idx.New().String(), UserID: u.ID, Secret: "S",
		Activated: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Credentials().Create(ctx, c))

	for i := 0; i < domain.MaxCodeFailures; i++ {
		c = c.RecordFailure(now)
	}
	require.NoError(t, s.Credentials().UpdateFailureState(ctx, c))

	got, err := s.Credentials().GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MaxCodeFailures, got.FailedAttempts)
	require.NotNil(t, got.LockedUntil)
	require.True(t, got.Locked(now))

	require.NoError(t, s.Credentials().ResetFailures(ctx, u.ID))
	got, err = s.Credentials().GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
}

func seedProduct(t *testing.T, s *Store, stock int64) domain.Product {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	p := domain.Product{
		ID:         idx.New().String(),
		Name:       "Ibuprofen 400mg",
		PriceCents: 1250,
		Stock:      stock,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.Products().CreateProduct(context.Background(), p))
	return p
}

func TestDecrementStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 3)

	require.NoError(t, s.Products().DecrementStock(ctx, p.ID, 2))

	got, err := s.Products().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Stock)

	// 1 left, asking for 2: row untouched.
	require.ErrorIs(t, s.Products().DecrementStock(ctx, p.ID, 2), domain.ErrInsufficientStock)

	got, err = s.Products().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Stock)

	require.NoError(t, s.Products().DecrementStock(ctx, p.ID, 1))
	require.ErrorIs(t, s.Products().DecrementStock(ctx, p.ID, 1), domain.ErrInsufficientStock)
}

func TestCardsOwnershipAndPrimary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s)
	other := seedUser(t, s)
	now := time.Now().UTC().Truncate(time.Second)

	mk := func(primary bool) domain.Card {
		c := domain.Card{
			ID: idx.New().String(), UserID: owner.ID,
			Last4: "0366", Brand: domain.BrandVisa, Holder: "Alice Moreno",
			ExpMonth: 12, ExpYear: 2027, NumberEnc: []byte{1, 2, 3},
			IsPrimary: primary, Active: true, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, s.Cards().CreateCard(ctx, c))
		return c
	}

	first := mk(true)
	require.NoError(t, s.Cards().DemotePrimary(ctx, owner.ID))
	second := mk(true)

	cards, err := s.Cards().ListCardsByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, second.ID, cards[0].ID)
	require.True(t, cards[0].IsPrimary)
	require.False(t, cards[1].IsPrimary)

	t.Run("cannot deactivate someone else's card", func(t *testing.T) {
		require.ErrorIs(t, s.Cards().DeactivateCard(ctx, first.ID, other.ID), store.ErrNotFound)
	})

	require.NoError(t, s.Cards().DeactivateCard(ctx, first.ID, owner.ID))
	_, err = s.Cards().GetCardByID(ctx, first.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	cards, err = s.Cards().ListCardsByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
}

func TestInvoiceNumberUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)
	now := time.Now().UTC().Truncate(time.Second)

	mkOrder := func() domain.Order {
		o := domain.Order{
			ID: idx.New().String(), UserID: u.ID,
			Status: domain.OrderConfirmed, PaymentMethod: domain.PayNewCard,
			SubtotalCents: 2500, TaxCents: 475, TotalCents: 2975, CreatedAt: now,
		}
		require.NoError(t, s.Orders().CreateOrder(ctx, o))
		return o
	}

	number, err := domain.NewInvoiceNumber(now, rand.Reader)
	require.NoError(t, err)

	first := domain.Invoice{
		ID: idx.New().String(), OrderID: mkOrder().ID, Number: number,
		Status: domain.InvoiceIssued, SubtotalCents: 2500, TaxCents: 475,
		TotalCents: 2975, CreatedAt: now,
	}
	require.NoError(t, s.Invoices().CreateInvoice(ctx, first))

	dup := first
	dup.ID = idx.New().String()
	dup.OrderID = mkOrder().ID
	require.ErrorIs(t, s.Invoices().CreateInvoice(ctx, dup), store.ErrAlreadyExists)

	got, err := s.Invoices().GetInvoiceByOrderID(ctx, first.OrderID)
	require.NoError(t, err)
	require.Equal(t, number, got.Number)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 5)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Products().DecrementStock(ctx, p.ID, 5); err != nil {
			return err
		}
		return tx.Products().DecrementStock(ctx, p.ID, 1) // forces the rollback
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := s.Products().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, got.Stock)
}

func TestAuditAppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)
	now := time.Now().UTC().Truncate(time.Second)

	for i, action := range []string{domain.AuditLoginFailed, domain.AuditCodeRejected} {
		require.NoError(t, s.AuditEvents().Append(ctx, domain.AuditEvent{
			ID:          idx.New().String(),
			ActorID:     u.ID,
			Action:      action,
			Description: "test event",
			Origin:      "127.0.0.1",
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := s.AuditEvents().ListByActor(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.AuditCodeRejected, events[0].Action) // newest first
}
