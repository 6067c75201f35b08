package sqlite

import (
	"context"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

type ordersRepo struct {
	db dbtx
}

const orderColumns = `id, user_id, status, payment_method, subtotal_cents, tax_cents, total_cents, created_at`

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentMethod,
		&o.SubtotalCents, &o.TaxCents, &o.TotalCents, &o.CreatedAt)
	if err != nil {
		return domain.Order{}, mapNotFound(err)
	}
	return o, nil
}

func (r *ordersRepo) CreateOrder(ctx context.Context, o domain.Order) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Status, o.PaymentMethod,
		o.SubtotalCents, o.TaxCents, o.TotalCents, o.CreatedAt)
	return mapConstraint(err)
}

func (r *ordersRepo) CreateOrderLine(ctx context.Context, orderID string, l domain.OrderLine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO order_lines (order_id, product_id, quantity, unit_price_cents)
		 VALUES (?, ?, ?, ?)`,
		orderID, l.ProductID, l.Quantity, l.UnitPriceCents)
	return mapConstraint(err)
}

func (r *ordersRepo) GetOrderByID(ctx context.Context, id string) (domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
}

func (r *ordersRepo) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
