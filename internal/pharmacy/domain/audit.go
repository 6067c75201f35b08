package domain

import "time"

// Audit action codes for security-relevant outcomes.
const (
	AuditLoginFailed       = "LOGIN_FAILED"
	AuditCodeRejected      = "2FA_CODE_REJECTED"
	AuditCredentialLocked  = "2FA_CREDENTIAL_LOCKED"
	AuditMFAActivated      = "2FA_ACTIVATED"
	AuditCardSaved         = "CARD_SAVED"
	AuditCardDeleted       = "CARD_DELETED"
	AuditCardAccessDenied  = "CARD_ACCESS_DENIED"
	AuditPurchaseCompleted = "PURCHASE_COMPLETED"
	AuditPurchaseIntegrity = "PURCHASE_INTEGRITY_FAILURE"
)

// AuditEvent is an append-only record of a security-relevant outcome.
// ActorID is empty when the actor never authenticated.
type AuditEvent struct {
	ID          string
	ActorID     string
	Action      string
	Description string
	Origin      string // caller network address
	CreatedAt   time.Time
}
