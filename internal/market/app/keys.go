package app

import (
	"fmt"
	"log/slog"

	"github.com/cpf-camaras/market/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager for access tokens.
//
// With CPF_SIGNING_KEY_FILE set the Ed25519 key is read from that file, or
// generated into it on first start, so tokens survive restarts. Without it a
// fresh key is generated and every outstanding token dies with the process.
// CPF_SIGNING_KEY_SECRET seals the file at rest.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		KeyFile: cfg.SigningKeyFile,
	}
	if cfg.SigningKeySecret != "" {
		opts.KeySecret = []byte(cfg.SigningKeySecret)
	}
	km, err := jwtx.NewKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}

	if cfg.SigningKeyFile != "" {
		logger.Info("signing key loaded",
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
			"sealed", cfg.SigningKeySecret != "",
		)
	} else {
		logger.Warn("ephemeral signing key generated; tokens will not survive a restart",
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
	}
	return km, nil
}
