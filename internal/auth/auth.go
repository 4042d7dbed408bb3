// Package auth verifies passwords and issues and resolves credentials.
//
// A credential proves a prior successful sign-in. Two interchangeable
// variants exist behind the Strategy interface: signed stateless bearer
// tokens (JWTStrategy) and server-held sessions addressed by an opaque
// cookie value (SessionStrategy). One is selected at startup by
// configuration; callers only ever talk to Manager.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Typed resolution failures. Callers map all of them to "anonymous".
var (
	ErrExpired   = errors.New("auth: credential expired")
	ErrMalformed = errors.New("auth: credential malformed")
	ErrNotFound  = errors.New("auth: credential not found")
)

// Mode names a credential variant.
type Mode string

const (
	ModeToken   Mode = "token"
	ModeSession Mode = "session"
)

// Credential is what a client receives after signing in.
type Credential struct {
	Mode      Mode
	Value     string
	ExpiresAt time.Time
}

// Strategy is one credential variant.
type Strategy interface {
	Mode() Mode
	// Issue produces a credential for identityID valid for the
	// strategy's configured lifetime.
	Issue(ctx context.Context, identityID string) (*Credential, error)
	// Resolve validates raw and returns the identity id it was issued
	// for. Failures are ErrExpired, ErrMalformed or ErrNotFound, possibly
	// wrapped.
	Resolve(ctx context.Context, raw string) (string, error)
	// Revoke invalidates raw. Stateless variants treat this as a no-op.
	Revoke(ctx context.Context, raw string) error
	// RevokeAll invalidates every credential issued for identityID.
	RevokeAll(ctx context.Context, identityID string) error
	// Extract pulls the raw credential out of a request, or "" if none
	// was presented.
	Extract(r *http.Request) string
}

// Manager is the single entry point for password hashing and credential
// handling.
type Manager struct {
	cost     int
	strategy Strategy
}

// NewManager creates a Manager hashing with the given bcrypt cost and
// issuing credentials with strategy.
func NewManager(cost int, strategy Strategy) *Manager {
	return &Manager{cost: cost, strategy: strategy}
}

// Mode returns the active credential variant.
func (m *Manager) Mode() Mode { return m.strategy.Mode() }

// Issue produces a credential for identityID.
func (m *Manager) Issue(ctx context.Context, identityID string) (*Credential, error) {
	cred, err := m.strategy.Issue(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("auth: issue: %w", err)
	}
	return cred, nil
}

// Resolve returns the identity id raw was issued for.
func (m *Manager) Resolve(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrNotFound
	}
	return m.strategy.Resolve(ctx, raw)
}

// Revoke invalidates raw.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return m.strategy.Revoke(ctx, raw)
}

// RevokeAll invalidates every credential of identityID.
func (m *Manager) RevokeAll(ctx context.Context, identityID string) error {
	return m.strategy.RevokeAll(ctx, identityID)
}

// Extract returns the raw credential presented with r.
func (m *Manager) Extract(r *http.Request) string {
	return m.strategy.Extract(r)
}
