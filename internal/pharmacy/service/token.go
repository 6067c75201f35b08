package service

import (
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/pkg/jwtx"
)

// TokenSummary is the decoded identity handed back alongside a freshly
// minted token, so clients can render the session without re-parsing it.
type TokenSummary struct {
	Name    string
	Role    string
	Modules []string
}

// TokenService mints and verifies the platform's access tokens. The role's
// module grants are resolved at mint time and embedded in the claims, so
// downstream services never need the role table.
type TokenService struct {
	Signer   *jwtx.Signer
	Verifier *jwtx.Verifier
	Policy   domain.AccessPolicy
	Issuer   string
	TTL      time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// MintToken issues a signed access token for the user.
func (s *TokenService) MintToken(u domain.User) (string, TokenSummary, error) {
	modules := s.Policy.Modules(u.Role)
	claims := jwtx.NewAccessClaims(u.ID, u.Role.Name(), modules, u.Name, s.TTL, s.Issuer, s.now())

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", TokenSummary{}, err
	}

	return token, TokenSummary{
		Name:    u.Name,
		Role:    u.Role.Name(),
		Modules: modules,
	}, nil
}

// VerifyToken parses and validates a token string.
func (s *TokenService) VerifyToken(token string) (jwtx.Claims, error) {
	return s.Verifier.Verify(token)
}
