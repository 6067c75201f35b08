package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

// CardKeySize is the required key length for the card cipher (AES-256).
const CardKeySize = 32

// CardCipher encrypts card numbers at rest with AES-256-GCM. The output
// format is [nonce][ciphertext+tag] with a fresh random nonce per call, so
// encrypting the same number twice never yields the same bytes.
//
// The key is a single static value owned by the process; constructing the
// cipher with bad key material is a startup failure, not a per-call one.
type CardCipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCardCipher builds a CardCipher from a 32-byte key. Nonces are drawn
// from rand so tests can supply their own source.
func NewCardCipher(key []byte, rand io.Reader) (*CardCipher, error) {
	if len(key) != CardKeySize {
		return nil, fmt.Errorf("cryptox: card key must be %d bytes, got %d", CardKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &CardCipher{aead: aead, rand: rand}, nil
}

// Encrypt seals plaintext under a fresh nonce and returns nonce||ciphertext.
func (c *CardCipher) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt reverses Encrypt, verifying the authentication tag.
func (c *CardCipher) Decrypt(payload []byte) (string, error) {
	nonceSize := c.aead.NonceSize()
	if len(payload) < nonceSize {
		return "", errors.New("cryptox: ciphertext too short")
	}

	nonce, ciphertext := payload[:nonceSize], payload[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("cryptox: decryption failed: %w", err)
	}

	return string(plaintext), nil
}
