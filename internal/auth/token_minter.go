// Package auth mints short-lived bearer tokens the Workflow API Client
// attaches to outbound Planner/Generator requests. Adapted from the
// teacher's inbound user-session JWTService (go/internal/application/auth)
// into an outbound service-to-service signer: there is no user, no refresh
// token, no claims beyond the run identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smilemakc/noteflow/internal/config"
)

// ServiceClaims identifies the run minting the token, not a human user.
type ServiceClaims struct {
	jwt.RegisteredClaims
	RunID string `json:"run_id"`
}

// TokenMinter signs bearer tokens for the engine's own outbound calls.
type TokenMinter struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

// NewTokenMinter builds a TokenMinter from AuthConfig. If cfg.JWTSecret is
// empty, Mint returns an empty string and no error: outbound requests then
// carry no Authorization header, matching a Planner/Generator deployment
// that doesn't require one.
func NewTokenMinter(cfg config.AuthConfig) *TokenMinter {
	return &TokenMinter{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		lifetime: cfg.TokenLifetime,
	}
}

// Mint signs a bearer token scoped to runID, valid for the configured
// lifetime.
func (m *TokenMinter) Mint(runID string) (string, error) {
	if len(m.secret) == 0 {
		return "", nil
	}

	now := time.Now()
	claims := &ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   runID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
		RunID: runID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}
