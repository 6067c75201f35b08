package sqlite

import (
	"context"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
)

type auditRepo struct {
	db dbtx
}

func (r *auditRepo) Append(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, actor_id, action, description, origin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActorID, e.Action, e.Description, e.Origin, e.CreatedAt)
	return mapConstraint(err)
}

func (r *auditRepo) ListByActor(ctx context.Context, actorID string) ([]domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, action, description, origin, created_at
		 FROM audit_events WHERE actor_id = ? ORDER BY created_at DESC, id DESC`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Description, &e.Origin, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
