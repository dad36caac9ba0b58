package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// sealedKeyMagic prefixes sealed key files so a plaintext PEM is never fed
// to the cipher by mistake.
var sealedKeyMagic = []byte("CPFKEY1\n")

var ErrNotSealed = errors.New("cryptox: data is not a sealed key")

func keyCipher(secret []byte) (cipher.AEAD, error) {
	if len(secret) == 0 {
		return nil, errors.New("cryptox: empty key secret")
	}
	// The secret is operator-supplied text; SHA-256 turns it into an
	// AES-256 key.
	sum := sha256.Sum256(secret)

	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SealKey encrypts a PEM private key with AES-256-GCM under secret.
// Output: magic, 12-byte nonce, ciphertext and tag.
func SealKey(secret, pemData []byte) ([]byte, error) {
	gcm, err := keyCipher(secret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := append(bytes.Clone(sealedKeyMagic), nonce...)
	return gcm.Seal(out, nonce, pemData, nil), nil
}

// OpenKey reverses SealKey. A wrong secret or tampered data fails
// authentication.
func OpenKey(secret, sealed []byte) ([]byte, error) {
	if !IsSealedKey(sealed) {
		return nil, ErrNotSealed
	}
	gcm, err := keyCipher(secret)
	if err != nil {
		return nil, err
	}

	body := sealed[len(sealedKeyMagic):]
	if len(body) < gcm.NonceSize() {
		return nil, errors.New("cryptox: sealed key too short")
	}
	nonce, ciphertext := body[:gcm.NonceSize()], body[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// IsSealedKey reports whether data was produced by SealKey.
func IsSealedKey(data []byte) bool {
	return bytes.HasPrefix(data, sealedKeyMagic)
}
