package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/auth"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/memstore"
)

func TestSessionIssueResolveRevoke(t *testing.T) {
	store := memstore.NewSessions()
	s := auth.NewSessionStrategy(store, "secret", time.Hour)
	ctx := context.Background()

	cred, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, auth.ModeSession, cred.Mode)

	id, err := s.Resolve(ctx, cred.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	require.NoError(t, s.Revoke(ctx, cred.Value))
	_, err = s.Resolve(ctx, cred.Value)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionTamperedValueIsMalformed(t *testing.T) {
	s := auth.NewSessionStrategy(memstore.NewSessions(), "secret", time.Hour)
	ctx := context.Background()

	cred, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)

	id, _, _ := strings.Cut(cred.Value, ".")
	_, err = s.Resolve(ctx, id+".forged")
	assert.ErrorIs(t, err, auth.ErrMalformed)

	_, err = s.Resolve(ctx, "no-signature")
	assert.ErrorIs(t, err, auth.ErrMalformed)

	other := auth.NewSessionStrategy(memstore.NewSessions(), "other", time.Hour)
	_, err = other.Resolve(ctx, cred.Value)
	assert.ErrorIs(t, err, auth.ErrMalformed)
}

func TestSessionExpired(t *testing.T) {
	s := auth.NewSessionStrategy(memstore.NewSessions(), "secret", -time.Minute)
	ctx := context.Background()

	cred, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	_, err = s.Resolve(ctx, cred.Value)
	assert.ErrorIs(t, err, auth.ErrExpired)
}

func TestSessionRevokeAll(t *testing.T) {
	store := memstore.NewSessions()
	s := auth.NewSessionStrategy(store, "secret", time.Hour)
	ctx := context.Background()

	a, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	b, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	other, err := s.Issue(ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, s.RevokeAll(ctx, "user-1"))
	for _, c := range []*auth.Credential{a, b} {
		_, err := s.Resolve(ctx, c.Value)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	}
	id, err := s.Resolve(ctx, other.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-2", id)
}

func TestSessionStoreFailureIsNotAnIdentity(t *testing.T) {
	store := memstore.NewSessions()
	s := auth.NewSessionStrategy(store, "secret", time.Hour)
	ctx := context.Background()

	cred, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)

	store.Fail("GetSession", errors.New("connection reset"))
	id, err := s.Resolve(ctx, cred.Value)
	assert.Error(t, err)
	assert.Empty(t, id)
}

func TestSessionExtractReadsCookie(t *testing.T) {
	s := auth.NewSessionStrategy(memstore.NewSessions(), "secret", time.Hour)
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", s.Extract(r))

	r.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "abc.def"})
	assert.Equal(t, "abc.def", s.Extract(r))
}
