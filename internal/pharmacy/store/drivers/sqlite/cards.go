package sqlite

import (
	"context"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

type cardsRepo struct {
	db dbtx
}

const cardColumns = `id, user_id, last4, brand, holder, exp_month, exp_year, number_enc, is_primary, active, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (domain.Card, error) {
	var c domain.Card
	err := row.Scan(&c.ID, &c.UserID, &c.Last4, &c.Brand, &c.Holder,
		&c.ExpMonth, &c.ExpYear, &c.NumberEnc, &c.IsPrimary, &c.Active,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Card{}, mapNotFound(err)
	}
	return c, nil
}

func (r *cardsRepo) CreateCard(ctx context.Context, c domain.Card) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Last4, c.Brand, c.Holder,
		c.ExpMonth, c.ExpYear, c.NumberEnc, c.IsPrimary, c.Active,
		c.CreatedAt, c.UpdatedAt)
	return mapConstraint(err)
}

func (r *cardsRepo) GetCardByID(ctx context.Context, id string) (domain.Card, error) {
	return scanCard(r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ? AND active = 1`, id))
}

func (r *cardsRepo) ListCardsByUser(ctx context.Context, userID string) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards
		 WHERE user_id = ? AND active = 1
		 ORDER BY is_primary DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *cardsRepo) DemotePrimary(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cards SET is_primary = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND is_primary = 1`, userID)
	return err
}

func (r *cardsRepo) DeactivateCard(ctx context.Context, cardID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET active = 0, is_primary = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND active = 1`,
		cardID, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}
