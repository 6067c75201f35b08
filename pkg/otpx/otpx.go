// Package otpx wraps the TOTP operations the platform needs: provisioning
// enrollment secrets and validating the 6-digit codes users submit. The
// clock and random source are always supplied by the caller so code windows
// and secrets are reproducible in tests.
package otpx

import (
	"fmt"
	"io"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the code window length in seconds.
	Period = 30

	// secretSize is the raw secret length in bytes. 20 bytes gives the
	// 160-bit minimum RFC 4226 recommends.
	secretSize = 20
)

// Key is a freshly provisioned enrollment secret plus the otpauth:// URI an
// authenticator app can scan.
type Key struct {
	Secret  string // base32, no padding
	URI     string // otpauth://totp/{issuer}:{account}?secret=...&issuer=...
	Issuer  string
	Account string
}

// GenerateKey provisions a new TOTP secret for the given account label.
// Entropy is drawn from rand, never from a global source.
func GenerateKey(rand io.Reader, issuer, account string) (Key, error) {
	k, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Rand:        rand,
	})
	if err != nil {
		return Key{}, fmt.Errorf("otpx: generate key: %w", err)
	}

	return Key{
		Secret:  k.Secret(),
		URI:     k.URL(),
		Issuer:  issuer,
		Account: account,
	}, nil
}

// Code computes the 6-digit code for the window containing at. Exposed for
// tests and for rendering codes in tooling; validation should go through
// Validate.
func Code(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, validateOpts())
	if err != nil {
		return "", fmt.Errorf("otpx: compute code: %w", err)
	}
	return code, nil
}

// Validate reports whether code is correct for secret at the given time,
// tolerating one window of clock drift either side. All failure causes (bad
// secret, bad code, bad length) collapse to false so callers cannot leak
// which part was wrong.
func Validate(secret, code string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, now, validateOpts())
	return err == nil && ok
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
