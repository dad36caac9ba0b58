package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

const pkcs8BlockType = "PRIVATE KEY"

// ErrNotEd25519 is returned when PEM input holds some other kind of key.
var ErrNotEd25519 = errors.New("cryptox: not an Ed25519 private key")

// GenerateEd25519Key returns a fresh Ed25519 private key as a PKCS8 PEM block,
// the format the token signer and the key file both use.
func GenerateEd25519Key() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate Ed25519 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal PKCS8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pkcs8BlockType, Bytes: der}), nil
}

// ParseEd25519Key decodes a PKCS8 PEM block produced by GenerateEd25519Key.
func ParseEd25519Key(pemKey []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cryptox: invalid PEM for Ed25519 key")
	}
	if block.Type != pkcs8BlockType {
		return nil, fmt.Errorf("cryptox: expected %s block, got %q", pkcs8BlockType, block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	return key, nil
}
