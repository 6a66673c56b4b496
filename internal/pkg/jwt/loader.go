// internal/pkg/jwt/loader.go
package jwt

import (
	"context"
	"fmt"
)

const (
	ModeHMAC = "hmac"
	ModeRSA  = "rsa"
	ModeOIDC = "oidc"
)

type Config struct {
	Mode     string
	Secret   string
	PubPath  string
	Issuer   string
	Audience string

	OIDCIssuerURL string
	OIDCClientID  string
}

// Build returns the verifier selected by cfg.Mode.
func Build(ctx context.Context, cfg Config) (TokenVerifier, error) {
	switch cfg.Mode {
	case ModeHMAC, "":
		if cfg.Secret == "" {
			return nil, fmt.Errorf("jwt secret is required for hmac mode")
		}
		return NewHMACVerifier([]byte(cfg.Secret), cfg.Issuer, cfg.Audience), nil
	case ModeRSA:
		pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
		}
		return NewRSAVerifier(pub, cfg.Issuer, cfg.Audience), nil
	case ModeOIDC:
		return NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
	}
	return nil, fmt.Errorf("unknown jwt mode %q", cfg.Mode)
}
