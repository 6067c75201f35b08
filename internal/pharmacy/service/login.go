package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/cryptox"
	"github.com/farmadigital/pharmacy/pkg/idx"
	"github.com/farmadigital/pharmacy/pkg/otpx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// LoginStatus is the outcome class of a login attempt that did not fail.
type LoginStatus string

const (
	// StatusEnrollmentStarted means the password was right but the user
	// has no activated second factor yet; the response carries enrollment
	// material instead of a token.
	StatusEnrollmentStarted LoginStatus = "enrollment_started"

	// StatusCodeRequired means the password was right and the user must
	// now submit a one-time code.
	StatusCodeRequired LoginStatus = "code_required"

	// StatusAuthenticated means both factors passed and a token was issued.
	StatusAuthenticated LoginStatus = "authenticated"
)

type LoginInput struct {
	Email    string
	Password string
	Code     string // empty on the first leg of the two-step flow
	Origin   string // caller network address, for the audit trail
}

type LoginResult struct {
	Status LoginStatus

	// Enrollment material; set only for StatusEnrollmentStarted.
	EnrollmentURI string
	Secret        string

	// Token and its decoded summary; set only for StatusAuthenticated.
	Token   string
	Summary TokenSummary
}

// LoginService drives the password + one-time-code login flow, including
// first-time second-factor enrollment.
type LoginService struct {
	Store  store.Store
	Tokens *TokenService

	// TOTPIssuer labels provisioned secrets in authenticator apps.
	TOTPIssuer string

	// Clock and Rand override the real clock and crypto/rand, for tests.
	Clock func() time.Time
	Rand  io.Reader
}

func (s *LoginService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *LoginService) rand() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.Reader
}

// Login runs one leg of the login flow. The same endpoint serves all three
// outcomes: enrollment start, code challenge, and full authentication.
func (s *LoginService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same failure shape as a bad password so probes learn nothing.
			emitAudit(ctx, s.Store.AuditEvents(), now, "", domain.AuditLoginFailed,
				fmt.Sprintf("unknown email %s", email), in.Origin)
			return LoginResult{}, fmt.Errorf("%w: bad credentials", domain.ErrAuthentication)
		}
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		l.Info("login password check failed", slog.String("user_id", user.ID))
		emitAudit(ctx, s.Store.AuditEvents(), now, user.ID, domain.AuditLoginFailed, "wrong password", in.Origin)
		return LoginResult{}, fmt.Errorf("%w: bad credentials", domain.ErrAuthentication)
	}

	cred, err := s.Store.Credentials().GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, err
	}
	var credPtr *domain.TwoFactorCredential
	if err == nil {
		credPtr = &cred
	}

	switch domain.StateOf(credPtr) {
	case domain.StateUnregistered:
		return s.startEnrollment(ctx, user, now)

	case domain.StatePendingActivation:
		if in.Code == "" {
			// Re-provision: the pending secret may never have reached an
			// authenticator app, so each passwordless-code login hands
			// out a fresh one.
			return s.reissueEnrollment(ctx, user, now)
		}
		return s.activate(ctx, user, cred, in, now)

	default: // StateActive
		if in.Code == "" {
			return LoginResult{Status: StatusCodeRequired}, nil
		}
		if err := verifyActiveCode(ctx, s.Store, user.ID, in.Code, in.Origin, now); err != nil {
			return LoginResult{}, err
		}
		return s.issueToken(ctx, user)
	}
}

func (s *LoginService) startEnrollment(ctx context.Context, user domain.User, now time.Time) (LoginResult, error) {
	key, err := otpx.GenerateKey(s.rand(), s.TOTPIssuer, user.Email)
	if err != nil {
		return LoginResult{}, err
	}

	err = s.Store.Credentials().Create(ctx, domain.TwoFactorCredential{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Secret:    key.Secret,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Status:        StatusEnrollmentStarted,
		EnrollmentURI: key.URI,
		Secret:        key.Secret,
	}, nil
}

func (s *LoginService) reissueEnrollment(ctx context.Context, user domain.User, now time.Time) (LoginResult, error) {
	key, err := otpx.GenerateKey(s.rand(), s.TOTPIssuer, user.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.Credentials().ReplaceSecret(ctx, user.ID, key.Secret); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Status:        StatusEnrollmentStarted,
		EnrollmentURI: key.URI,
		Secret:        key.Secret,
	}, nil
}

// activate turns a pending credential active when the user proves they
// captured the secret. Activation and the user flag flip together. Failed
// activation codes count against the same bounded-retry state as active
// codes, so a pending secret cannot be brute-forced either.
func (s *LoginService) activate(
	ctx context.Context,
	user domain.User,
	cred domain.TwoFactorCredential,
	in LoginInput,
	now time.Time,
) (LoginResult, error) {
	if cred.Locked(now) {
		return LoginResult{}, fmt.Errorf("%w: credential locked", domain.ErrAuthentication)
	}

	if !otpx.Validate(cred.Secret, in.Code, now) {
		cred = cred.RecordFailure(now)
		if err := s.Store.Credentials().UpdateFailureState(ctx, cred); err != nil {
			return LoginResult{}, err
		}
		emitAudit(ctx, s.Store.AuditEvents(), now, user.ID, domain.AuditCodeRejected,
			"activation code rejected", in.Origin)
		if cred.Locked(now) {
			emitAudit(ctx, s.Store.AuditEvents(), now, user.ID, domain.AuditCredentialLocked,
				fmt.Sprintf("credential locked for %s after %d failures", domain.LockoutWindow, cred.FailedAttempts), in.Origin)
		}
		return LoginResult{}, fmt.Errorf("%w: invalid code", domain.ErrAuthentication)
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().Activate(ctx, user.ID); err != nil {
			return err
		}
		return tx.Users().SetMFAEnabled(ctx, user.ID, true)
	})
	if err != nil {
		return LoginResult{}, err
	}

	emitAudit(ctx, s.Store.AuditEvents(), now, user.ID, domain.AuditMFAActivated,
		"second factor activated", in.Origin)

	return s.issueToken(ctx, user)
}

func (s *LoginService) issueToken(ctx context.Context, user domain.User) (LoginResult, error) {
	token, summary, err := s.Tokens.MintToken(user)
	if err != nil {
		return LoginResult{}, err
	}
	slogx.FromContext(ctx).Info("login succeeded",
		slog.String("user_id", user.ID),
		slog.String("role", summary.Role),
	)
	return LoginResult{
		Status:  StatusAuthenticated,
		Token:   token,
		Summary: summary,
	}, nil
}
