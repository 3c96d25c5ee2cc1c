package jwtinfra

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/go-api-otp/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// ScopeEmailVerified marks a token proving control of Email.
const ScopeEmailVerified = "email_verified"

// Claims holds the JWT payload fields.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// Provider signs RS256 JWTs handed out after a successful email verification.
type Provider struct {
	privateKey *rsa.PrivateKey
	expiry     time.Duration
	now        func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Provider{
		privateKey: privKey,
		expiry:     time.Duration(cfg.JWTExpiryMinutes) * time.Minute,
		now:        time.Now,
	}, nil
}

// SignEmailVerified issues a short-lived token for the account whose email was just verified.
func (p *Provider) SignEmailVerified(accountID, email string) (string, error) {
	now := p.now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		Scope:     ScopeEmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}
