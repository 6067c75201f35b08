package sqlite

import (
	"context"
	"database/sql"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) GetByUserID(ctx context.Context, userID string) (domain.TwoFactorCredential, error) {
	var (
		c           domain.TwoFactorCredential
		lockedUntil sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, secret, activated, failed_attempts, locked_until, created_at, updated_at
		 FROM two_factor_credentials WHERE user_id = ?`, userID).
		Scan(&c.ID, &c.UserID, &c.Secret, &c.Activated, &c.FailedAttempts, &lockedUntil, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.TwoFactorCredential{}, mapNotFound(err)
	}
	c.LockedUntil = mapNullTimePtr(lockedUntil)
	return c, nil
}

func (r *credentialsRepo) Create(ctx context.Context, c domain.TwoFactorCredential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO two_factor_credentials
		 (id, user_id, secret, activated, failed_attempts, locked_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Secret, c.Activated, c.FailedAttempts,
		mapOptionalTime(c.LockedUntil), c.CreatedAt, c.UpdatedAt)
	return mapConstraint(err)
}

// ReplaceSecret only touches not-yet-activated credentials; an activated
// secret is immutable, so a replace attempt on one reports not found.
func (r *credentialsRepo) ReplaceSecret(ctx context.Context, userID, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE two_factor_credentials
		 SET secret = ?, failed_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND activated = 0`,
		secret, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *credentialsRepo) Activate(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE two_factor_credentials
		 SET activated = 1, failed_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *credentialsRepo) UpdateFailureState(ctx context.Context, c domain.TwoFactorCredential) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE two_factor_credentials
		 SET failed_attempts = ?, locked_until = ?, updated_at = ?
		 WHERE user_id = ?`,
		c.FailedAttempts, mapOptionalTime(c.LockedUntil), c.UpdatedAt, c.UserID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *credentialsRepo) ResetFailures(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE two_factor_credentials
		 SET failed_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// requireRows maps a zero-row UPDATE/DELETE to ErrNotFound.
func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
