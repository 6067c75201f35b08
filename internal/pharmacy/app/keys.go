package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/farmadigital/pharmacy/pkg/cryptox"
	"github.com/farmadigital/pharmacy/pkg/jwtx"
)

// initSigningKey loads the Ed25519 token-signing key, or generates an
// ephemeral one when no path is configured. With an ephemeral key every
// outstanding token dies on restart, which is acceptable in dev only.
func initSigningKey(cfg Config, logger *slog.Logger) (*jwtx.Signer, error) {
	if cfg.SigningKeyPath != "" {
		pemKey, err := os.ReadFile(cfg.SigningKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		signer, err := jwtx.NewSigner(pemKey)
		if err != nil {
			return nil, fmt.Errorf("load signing key: %w", err)
		}
		logger.Info("token signing key loaded", "path", cfg.SigningKeyPath)
		return signer, nil
	}

	if cfg.Env != "dev" {
		return nil, fmt.Errorf("PHARM_SIGNING_KEY_PATH is required outside dev")
	}

	pemKey, err := jwtx.GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	signer, err := jwtx.NewSigner(pemKey)
	if err != nil {
		return nil, err
	}
	logger.Warn("using ephemeral signing key; all tokens die on restart")
	return signer, nil
}

// initCardCipher builds the AES-GCM cipher for card numbers. The key is
// base64 and must decode to exactly 32 bytes; outside dev a missing key is
// a startup failure, never a silent downgrade.
func initCardCipher(cfg Config, logger *slog.Logger) (*cryptox.CardCipher, error) {
	if cfg.CardKey == "" {
		if cfg.Env != "dev" {
			return nil, fmt.Errorf("PHARM_CARD_KEY is required outside dev")
		}
		key := make([]byte, cryptox.CardKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		logger.Warn("using ephemeral card key; stored cards will not decrypt after restart")
		return cryptox.NewCardCipher(key, rand.Reader)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.CardKey)
	if err != nil {
		return nil, fmt.Errorf("decode card key: %w", err)
	}
	return cryptox.NewCardCipher(key, rand.Reader)
}
