// Package auth provides the optional bearer-token identity. Identity is owned
// by an external provider; this package only verifies tokens and exposes the
// subject as the user id.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims are the JWT claims read from a token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Config selects the verification key. A PEM public key selects RS256
// (for example a Keycloak realm key); otherwise Secret selects HS256.
type Config struct {
	Secret    string
	PublicKey string
	Issuer    string
}

// Validator verifies bearer tokens.
type Validator struct {
	key    any
	method jwt.SigningMethod
	issuer string
}

// NewValidator creates a validator from cfg.
func NewValidator(cfg Config) (*Validator, error) {
	v := &Validator{issuer: cfg.Issuer}

	switch {
	case cfg.PublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		v.key, v.method = key, jwt.SigningMethodRS256
	case cfg.Secret != "":
		v.key, v.method = []byte(cfg.Secret), jwt.SigningMethodHS256
	default:
		return nil, errors.New("a secret or a public key is required")
	}
	return v, nil
}

// ValidateToken verifies tokenString (with or without a "Bearer " prefix)
// and returns its claims.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{v.method.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}
	return claims, nil
}
