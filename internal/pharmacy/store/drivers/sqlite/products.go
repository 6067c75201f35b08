package sqlite

import (
	"context"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

type productsRepo struct {
	db dbtx
}

func (r *productsRepo) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, price_cents, stock, active, created_at, updated_at
		 FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, mapNotFound(err)
	}
	return p, nil
}

func (r *productsRepo) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price_cents, stock, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Active, p.CreatedAt, p.UpdatedAt)
	return mapConstraint(err)
}

// DecrementStock subtracts qty only when enough stock remains. The guard in
// the WHERE clause makes concurrent oversell impossible: the losing writer
// matches zero rows and gets ErrInsufficientStock.
func (r *productsRepo) DecrementStock(ctx context.Context, productID string, qty int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND active = 1 AND stock >= ?`,
		qty, productID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}
