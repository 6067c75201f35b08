package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/otpx"
)

// verifyActiveCode checks a one-time code against the user's activated
// credential, maintaining the bounded-retry state as it goes. Every failure
// path returns ErrAuthentication without revealing which check tripped.
//
// Sensitive operations (saving a card, paying with a stored card) call this
// with a freshly submitted code; a session token alone is never enough.
func verifyActiveCode(ctx context.Context, st store.Store, userID, code, origin string, now time.Time) error {
	cred, err := st.Credentials().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: second factor not enrolled", domain.ErrAuthentication)
		}
		return err
	}
	if !cred.Activated {
		return fmt.Errorf("%w: second factor not activated", domain.ErrAuthentication)
	}
	if cred.Locked(now) {
		return fmt.Errorf("%w: credential locked", domain.ErrAuthentication)
	}

	if !otpx.Validate(cred.Secret, code, now) {
		cred = cred.RecordFailure(now)
		if err := st.Credentials().UpdateFailureState(ctx, cred); err != nil {
			return err
		}
		emitAudit(ctx, st.AuditEvents(), now, userID, domain.AuditCodeRejected, "one-time code rejected", origin)
		if cred.Locked(now) {
			emitAudit(ctx, st.AuditEvents(), now, userID, domain.AuditCredentialLocked,
				fmt.Sprintf("credential locked for %s after %d failures", domain.LockoutWindow, cred.FailedAttempts), origin)
		}
		return fmt.Errorf("%w: invalid code", domain.ErrAuthentication)
	}

	if cred.FailedAttempts > 0 {
		if err := st.Credentials().ResetFailures(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
