package store

import (
	"context"
	"errors"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	Credentials() Credentials
	Products() Products
	Cards() Cards
	Orders() Orders
	Invoices() Invoices
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., checkout).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// SetMFAEnabled flips the user's second-factor flag and bumps updated_at.
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

type Credentials interface {
	// GetByUserID returns the user's second-factor credential.
	GetByUserID(ctx context.Context, userID string) (domain.TwoFactorCredential, error)

	// Create inserts a new, not-yet-activated credential.
	Create(ctx context.Context, c domain.TwoFactorCredential) error

	// ReplaceSecret swaps the secret of a NOT yet activated credential.
	// Returns ErrNotFound when the credential is missing or already active;
	// activated secrets are immutable.
	ReplaceSecret(ctx context.Context, userID, secret string) error

	// Activate marks the credential activated and clears failure state.
	Activate(ctx context.Context, userID string) error

	// UpdateFailureState persists the failed-attempt counter and lockout.
	UpdateFailureState(ctx context.Context, c domain.TwoFactorCredential) error

	// ResetFailures clears the failed-attempt counter and lockout.
	ResetFailures(ctx context.Context, userID string) error
}

type Products interface {
	// GetProductByID returns a product by id.
	GetProductByID(ctx context.Context, id string) (domain.Product, error)

	// CreateProduct inserts a new catalog item.
	CreateProduct(ctx context.Context, p domain.Product) error

	// DecrementStock atomically subtracts qty from the product's stock.
	// Returns domain.ErrInsufficientStock when the remaining stock cannot
	// cover qty; the row is left untouched in that case.
	DecrementStock(ctx context.Context, productID string, qty int64) error
}

type Cards interface {
	// CreateCard inserts a stored card.
	CreateCard(ctx context.Context, c domain.Card) error

	// GetCardByID returns an active card by id.
	GetCardByID(ctx context.Context, id string) (domain.Card, error)

	// ListCardsByUser returns the user's active cards, primary first.
	ListCardsByUser(ctx context.Context, userID string) ([]domain.Card, error)

	// DemotePrimary clears is_primary on all of the user's cards.
	DemotePrimary(ctx context.Context, userID string) error

	// DeactivateCard soft-deletes a card. The userID guard means callers
	// cannot delete cards they do not own; 0 rows maps to ErrNotFound.
	DeactivateCard(ctx context.Context, cardID, userID string) error
}

type Orders interface {
	// CreateOrder inserts the order header.
	CreateOrder(ctx context.Context, o domain.Order) error

	// CreateOrderLine inserts one line of an order.
	CreateOrderLine(ctx context.Context, orderID string, l domain.OrderLine) error

	// GetOrderByID returns the order header (lines not populated).
	GetOrderByID(ctx context.Context, id string) (domain.Order, error)

	// ListOrdersByUser returns the user's orders, newest first.
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type Invoices interface {
	// CreateInvoice inserts the invoice header. A duplicate invoice number
	// maps to ErrAlreadyExists.
	CreateInvoice(ctx context.Context, inv domain.Invoice) error

	// CreateInvoiceLine inserts one line of an invoice.
	CreateInvoiceLine(ctx context.Context, invoiceID string, l domain.InvoiceLine) error

	// GetInvoiceByOrderID returns the invoice issued for an order.
	GetInvoiceByOrderID(ctx context.Context, orderID string) (domain.Invoice, error)
}

type AuditEvents interface {
	// Append writes one audit event. The table is append-only.
	Append(ctx context.Context, e domain.AuditEvent) error

	// ListByActor returns an actor's events, newest first.
	ListByActor(ctx context.Context, actorID string) ([]domain.AuditEvent, error)
}
