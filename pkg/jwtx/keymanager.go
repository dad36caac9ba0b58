package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/cpf-camaras/market/pkg/cryptox"
)

// KeyManager owns the signing keys of one instance plus the KeySet and
// Verifier built from them.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures NewKeyManager.
type KeyManagerOptions struct {
	// Issuer is required and enforced on verification.
	Issuer string

	// NumKeys ephemeral keys are generated when KeyFile is empty. Defaults
	// to 1, capped at 10.
	NumKeys int

	// KeyFile, when set, holds a PKCS8 PEM that is loaded (or generated on
	// first start) so tokens survive restarts.
	KeyFile string

	// KeySecret, when set, seals KeyFile at rest with cryptox.SealKey. A
	// plaintext file found on disk is still accepted.
	KeySecret []byte
}

// NewKeyManager loads or generates Ed25519 signing keys.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	var pems [][]byte
	if opts.KeyFile != "" {
		pemKey, err := loadOrGenerateKeyFile(opts.KeyFile, opts.KeySecret)
		if err != nil {
			return nil, err
		}
		pems = append(pems, pemKey)
	} else {
		n := min(max(opts.NumKeys, 1), 10)
		for range n {
			pemKey, err := cryptox.GenerateEd25519Key()
			if err != nil {
				return nil, err
			}
			pems = append(pems, pemKey)
		}
	}

	km := &KeyManager{KeySet: NewKeySet()}
	for _, p := range pems {
		s, err := NewSignerEdDSA(keyID(p), p)
		if err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if err := km.KeySet.AddSigner(s); err != nil {
			return nil, err
		}
		km.signers = append(km.signers, s)
	}
	km.Verifier = NewVerifierEdDSA(km.KeySet, opts.Issuer, nil)
	return km, nil
}

// GetSigner returns one of the loaded signers at random.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))] // #nosec G404 - key selection, not a secret
}

// NumSigners reports how many signing keys are loaded.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

func loadOrGenerateKeyFile(path string, secret []byte) ([]byte, error) {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err == nil {
		if !cryptox.IsSealedKey(data) {
			return data, nil
		}
		if len(secret) == 0 {
			return nil, errors.New("jwtx: key file is sealed but no key secret is configured")
		}
		pemKey, err := cryptox.OpenKey(secret, data)
		if err != nil {
			return nil, fmt.Errorf("jwtx: open key file: %w", err)
		}
		return pemKey, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("jwtx: read key file: %w", err)
	}

	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	onDisk := pemKey
	if len(secret) > 0 {
		if onDisk, err = cryptox.SealKey(secret, pemKey); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("jwtx: create key dir: %w", err)
	}
	if err := os.WriteFile(path, onDisk, 0o600); err != nil {
		return nil, fmt.Errorf("jwtx: write key file: %w", err)
	}
	return pemKey, nil
}

// keyID derives a stable kid from the key material so a persisted key keeps
// its id across restarts.
func keyID(pemKey []byte) string {
	sum := sha256.Sum256(pemKey)
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16]
}
