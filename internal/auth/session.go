package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session credential.
const SessionCookieName = "session_id"

// Session is a server-held sign-in record.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ErrNoSession is returned by a SessionStore when no row matches.
var ErrNoSession = errors.New("session: not found")

// SessionStore persists sessions. Consistency across concurrent requests
// is delegated to the store's own atomicity; SessionStrategy holds no
// locks.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	RevokeSession(ctx context.Context, id string) error
	RevokeUserSessions(ctx context.Context, userID string) error
}

// SessionStrategy issues opaque session ids, signed with a server secret
// so tampered cookies are rejected before touching the store.
type SessionStrategy struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStrategy creates a strategy backed by store.
func NewSessionStrategy(store SessionStore, secret string, ttl time.Duration) *SessionStrategy {
	return &SessionStrategy{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SessionStrategy) Mode() Mode { return ModeSession }

// Issue creates a session row and returns its signed cookie value.
func (s *SessionStrategy) Issue(ctx context.Context, identityID string) (*Credential, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("session: generate id: %w", err)
	}
	id := hex.EncodeToString(b)
	now := s.now()

	sess := &Session{
		ID:        id,
		UserID:    identityID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return &Credential{Mode: ModeSession, Value: s.sign(id), ExpiresAt: sess.ExpiresAt}, nil
}

// Resolve verifies the cookie signature, then looks the session up.
func (s *SessionStrategy) Resolve(ctx context.Context, raw string) (string, error) {
	id, err := s.verify(raw)
	if err != nil {
		return "", err
	}

	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, ErrNoSession) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session: lookup: %w", err)
	}
	if sess.RevokedAt != nil {
		return "", ErrNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		return "", ErrExpired
	}
	return sess.UserID, nil
}

// Revoke marks the session behind raw as revoked. Unknown or tampered
// values are ignored.
func (s *SessionStrategy) Revoke(ctx context.Context, raw string) error {
	id, err := s.verify(raw)
	if err != nil {
		return nil
	}
	if err := s.store.RevokeSession(ctx, id); err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

// RevokeAll revokes every session of identityID.
func (s *SessionStrategy) RevokeAll(ctx context.Context, identityID string) error {
	if err := s.store.RevokeUserSessions(ctx, identityID); err != nil {
		return fmt.Errorf("session: revoke all: %w", err)
	}
	return nil
}

// Extract returns the session cookie value.
func (s *SessionStrategy) Extract(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *SessionStrategy) sign(id string) string {
	return id + "." + s.mac(id)
}

func (s *SessionStrategy) verify(raw string) (string, error) {
	id, sig, ok := strings.Cut(raw, ".")
	if !ok || id == "" || sig == "" {
		return "", ErrMalformed
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(id))) {
		return "", ErrMalformed
	}
	return id, nil
}

func (s *SessionStrategy) mac(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
