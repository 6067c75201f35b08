package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/idx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// emitAudit appends a security event to the trail. Auditing is best effort:
// a failed append is logged but never masks the outcome of the operation
// being audited.
func emitAudit(ctx context.Context, events store.AuditEvents, now time.Time, actorID, action, description, origin string) {
	err := events.Append(ctx, domain.AuditEvent{
		ID:          idx.New().String(),
		ActorID:     actorID,
		Action:      action,
		Description: description,
		Origin:      origin,
		CreatedAt:   now,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("audit append failed",
			slog.String("action", action),
			slog.String("actor_id", actorID),
			slog.Any("error", err),
		)
	}
}
