package api

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"licensecloud/internal/app/config"
	"licensecloud/internal/app/license"
)

// NewSigner подпись токенов активации по конфигу.
// Ключ ed25519 в base64: seed (32 байта) или полный приватный ключ (64 байта).
func NewSigner(cfg config.LicenseConfig) (license.Signer, error) {
	switch cfg.Signing {
	case config.SigningHMAC:
		signer, err := license.NewHMACSigner([]byte(cfg.Secret))
		if err != nil {
			return nil, err
		}
		return signer, nil
	case config.SigningEd25519:
		raw, err := base64.StdEncoding.DecodeString(cfg.Ed25519PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("decode ed25519 key: %w", err)
		}
		var key ed25519.PrivateKey
		switch len(raw) {
		case ed25519.SeedSize:
			key = ed25519.NewKeyFromSeed(raw)
		case ed25519.PrivateKeySize:
			key = ed25519.PrivateKey(raw)
		default:
			return nil, fmt.Errorf("ed25519 key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
		}
		signer, err := license.NewEd25519Signer(key)
		if err != nil {
			return nil, err
		}
		return signer, nil
	}
	return nil, fmt.Errorf("unknown license signing %q", cfg.Signing)
}
