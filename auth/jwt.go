// Package auth verifies Supabase-issued JWTs and exposes the caller's
// identity to request handlers. Verification is local (shared HS256 secret);
// authorization stays with the store's row-level security, which runs under
// the caller's own token.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the service relies on. Subject carries the
// user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var errEmptySubject = errors.New("token has no subject")

// Verifier validates bearer tokens against the shared signing secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a verifier. An empty issuer disables issuer checking.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a raw bearer token and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errEmptySubject
	}
	return claims, nil
}
