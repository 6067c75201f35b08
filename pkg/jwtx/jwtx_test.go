package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()

	pemKey, err := GenerateSigningKey()
	require.NoError(t, err)

	s, err := NewSigner(pemKey)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	return s
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	s := testSigner(t)
	v := NewVerifier(s.Public(), "pharmacy")

	claims := NewAccessClaims(
		"user-1",
		"customer",
		[]string{"catalog", "checkout"},
		"Alice",
		DefaultAccessTokenTTL,
		"pharmacy",
		time.Now().UTC(),
	)

	token, err := s.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "customer", got.Role)
	require.Equal(t, []string{"catalog", "checkout"}, got.Modules)
	require.Equal(t, "Alice", got.Name)
	require.True(t, got.HasModule("checkout"))
	require.False(t, got.HasModule("audit"))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Parallel()

	s1 := testSigner(t)
	s2 := testSigner(t)
	v := NewVerifier(s2.Public(), "pharmacy")

	claims := NewAccessClaims("user-1", "customer", nil, "", DefaultAccessTokenTTL, "pharmacy", time.Now().UTC())
	token, err := s1.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	s := testSigner(t)
	v := NewVerifier(s.Public(), "pharmacy")

	claims := NewAccessClaims("user-1", "customer", nil, "", time.Minute, "pharmacy", time.Now().UTC().Add(-time.Hour))
	token, err := s.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	s := testSigner(t)
	v := NewVerifier(s.Public(), "pharmacy")

	claims := NewAccessClaims("user-1", "customer", nil, "", DefaultAccessTokenTTL, "someone-else", time.Now().UTC())
	token, err := s.Sign(claims)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestNewSignerRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewSigner([]byte("not a pem"))
	require.Error(t, err)

	_, err = NewSigner([]byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"))
	require.Error(t, err)
}
