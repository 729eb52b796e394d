// Package crypto seals third-party access tokens before they are written to
// storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Plain stores tokens as-is. Used when TOKEN_ENCRYPTION_KEY is unset.
type Plain struct{}

func (Plain) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (Plain) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// AESGCM encrypts with AES-256-GCM and hex encodes nonce || ciphertext || tag.
type AESGCM struct {
	gcm cipher.AEAD
}

func NewAESGCM(hexKey string) (*AESGCM, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCM{gcm: gcm}, nil
}

// New picks AESGCM when a key is configured and Plain otherwise.
func New(hexKey string) (Cipher, error) {
	if hexKey == "" {
		return Plain{}, nil
	}
	return NewAESGCM(hexKey)
}

func (c *AESGCM) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

func (c *AESGCM) Decrypt(ciphertext string) (string, error) {
	buf, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(buf) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plain, err := c.gcm.Open(nil, buf[:nonceSize], buf[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}
