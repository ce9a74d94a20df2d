// Package crypto seals credentials stored at rest with AES-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrShortCiphertext = errors.New("ciphertext too short")

type AEAD struct{ aead cipher.AEAD }

// New takes a 16, 24 or 32 byte key.
func New(key []byte) (*AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	a, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return &AEAD{aead: a}, nil
}

// Seal encrypts plaintext bound to aad (the owning email) and returns
// base64(nonce || ciphertext).
func (a *AEAD) Seal(plaintext, aad string) (string, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	buf := a.aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func (a *AEAD) Open(sealed, aad string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("crypto: %w", err)
	}
	ns := a.aead.NonceSize()
	if len(buf) < ns {
		return "", ErrShortCiphertext
	}
	pt, err := a.aead.Open(nil, buf[:ns], buf[ns:], []byte(aad))
	if err != nil {
		return "", fmt.Errorf("crypto: %w", err)
	}
	return string(pt), nil
}
