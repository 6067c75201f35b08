package sqlite

import (
	"context"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

type invoicesRepo struct {
	db dbtx
}

func (r *invoicesRepo) CreateInvoice(ctx context.Context, inv domain.Invoice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (id, order_id, number, status, subtotal_cents, tax_cents, total_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrderID, inv.Number, inv.Status,
		inv.SubtotalCents, inv.TaxCents, inv.TotalCents, inv.CreatedAt)
	return mapConstraint(err)
}

func (r *invoicesRepo) CreateInvoiceLine(ctx context.Context, invoiceID string, l domain.InvoiceLine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoice_lines (invoice_id, product_id, quantity, unit_price_cents, total_cents)
		 VALUES (?, ?, ?, ?, ?)`,
		invoiceID, l.ProductID, l.Quantity, l.UnitPriceCents, l.TotalCents)
	return mapConstraint(err)
}

func (r *invoicesRepo) GetInvoiceByOrderID(ctx context.Context, orderID string) (domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, number, status, subtotal_cents, tax_cents, total_cents, created_at
		 FROM invoices WHERE order_id = ?`, orderID).
		Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.Status,
			&inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents, &inv.CreatedAt)
	if err != nil {
		return domain.Invoice{}, mapNotFound(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity, unit_price_cents, total_cents
		 FROM invoice_lines WHERE invoice_id = ?`, inv.ID)
	if err != nil {
		return domain.Invoice{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.InvoiceLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPriceCents, &l.TotalCents); err != nil {
			return domain.Invoice{}, err
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}
