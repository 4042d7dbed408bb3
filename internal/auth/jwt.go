package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeAccess is the only scope issued. Tokens carrying any other scope
// are rejected as malformed.
const ScopeAccess = "blog.access"

// Claims extends the standard JWT claims with a scope.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// JWTStrategy signs and validates HS256 bearer tokens. It holds no
// server-side state.
type JWTStrategy struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTStrategy creates a strategy with the given HMAC secret, issuer
// and token lifetime.
func NewJWTStrategy(secret, issuer string, ttl time.Duration) *JWTStrategy {
	return &JWTStrategy{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateSecret returns a random 32-byte hex string for use as a signing
// secret.
func GenerateSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *JWTStrategy) Mode() Mode { return ModeToken }

// Issue signs an access token for identityID.
func (s *JWTStrategy) Issue(_ context.Context, identityID string) (*Credential, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Scope: ScopeAccess,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("jwt: sign: %w", err)
	}
	return &Credential{Mode: ModeToken, Value: signed, ExpiresAt: exp}, nil
}

// Resolve parses and validates a token, returning its subject.
func (s *JWTStrategy) Resolve(_ context.Context, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", fmt.Errorf("%w: %v", ErrExpired, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid claims", ErrMalformed)
	}
	if claims.Scope != ScopeAccess {
		return "", fmt.Errorf("%w: wrong scope %q", ErrMalformed, claims.Scope)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return claims.Subject, nil
}

// Revoke is a no-op for stateless tokens. Clients discard them locally.
func (s *JWTStrategy) Revoke(context.Context, string) error { return nil }

// RevokeAll is a no-op for stateless tokens; a token whose subject no
// longer exists resolves to anonymous at the guard.
func (s *JWTStrategy) RevokeAll(context.Context, string) error { return nil }

// Extract returns the Bearer token from the Authorization header.
func (s *JWTStrategy) Extract(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
