package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/database"
)

// PGSessionStore is a SessionStore backed by the sessions table.
type PGSessionStore struct {
	db *database.DB
}

// NewPGSessionStore creates a session store.
func NewPGSessionStore(db *database.DB) *PGSessionStore {
	return &PGSessionStore{db: db}
}

func (s *PGSessionStore) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session: insert: %w", err)
	}
	return nil
}

func (s *PGSessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, user_id::text, created_at, expires_at, revoked_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &sess.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	return &sess, nil
}

func (s *PGSessionStore) RevokeSession(ctx context.Context, id string) error {
	result, err := s.db.Pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNoSession
	}
	return nil
}

func (s *PGSessionStore) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("session: revoke user %q: %w", userID, err)
	}
	return nil
}
