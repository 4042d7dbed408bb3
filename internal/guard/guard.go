// Package guard resolves requests to a principal and enforces the
// authentication and ownership rules on it.
package guard

import (
	"context"
	"net/http"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
)

// Credentials is the slice of auth.Manager the guard needs.
type Credentials interface {
	Extract(r *http.Request) string
	Resolve(ctx context.Context, raw string) (string, error)
}

// Principal is the acting identity of a request. The zero value is
// anonymous.
type Principal struct {
	Identity *account.Identity
	// Credential is the raw credential the principal was resolved from.
	Credential string
}

// Anonymous reports whether no identity was resolved.
func (p Principal) Anonymous() bool { return p.Identity == nil }

// ID returns the identity id, or "" when anonymous.
func (p Principal) ID() string {
	if p.Identity == nil {
		return ""
	}
	return p.Identity.ID
}

// Guard authenticates requests.
type Guard struct {
	creds    Credentials
	accounts account.Repository
}

// New creates a Guard.
func New(creds Credentials, accounts account.Repository) *Guard {
	return &Guard{creds: creds, accounts: accounts}
}

// Authenticate resolves r to a principal. It never fails: a missing,
// malformed, expired or revoked credential, or one whose identity no
// longer exists, yields the anonymous principal.
func (g *Guard) Authenticate(ctx context.Context, r *http.Request) Principal {
	raw := g.creds.Extract(r)
	if raw == "" {
		return Principal{}
	}
	id, err := g.creds.Resolve(ctx, raw)
	if err != nil {
		return Principal{}
	}
	identity, err := g.accounts.GetByID(ctx, id)
	if err != nil {
		return Principal{}
	}
	return Principal{Identity: identity, Credential: raw}
}

// RequireAuthenticated rejects the anonymous principal.
func RequireAuthenticated(p Principal) error {
	if p.Anonymous() {
		return apperr.Unauthenticated("You are not authenticated.")
	}
	return nil
}

// RequireOwner rejects p unless it is the identity ownerID. It does not
// check authentication; call RequireAuthenticated first.
func RequireOwner(p Principal, ownerID string) error {
	if p.ID() == "" || p.ID() != ownerID {
		return apperr.Forbidden("Unauthorized. You can only modify your own resources.")
	}
	return nil
}

// RequireAnonymous rejects an authenticated principal.
func RequireAnonymous(p Principal) error {
	if !p.Anonymous() {
		return apperr.New(apperr.KindAlreadyAuthenticated, "You are already authenticated.")
	}
	return nil
}
