package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/auth"
)

// Sessions is an in-memory auth.SessionStore.
type Sessions struct {
	Faults

	mu   sync.Mutex
	byID map[string]auth.Session
}

// NewSessions creates an empty Sessions store.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]auth.Session)}
}

var _ auth.SessionStore = (*Sessions)(nil)

func (s *Sessions) CreateSession(_ context.Context, sess *auth.Session) error {
	if err := s.check("CreateSession"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = *sess
	return nil
}

func (s *Sessions) GetSession(_ context.Context, id string) (*auth.Session, error) {
	if err := s.check("GetSession"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrNoSession
	}
	return &sess, nil
}

func (s *Sessions) RevokeSession(_ context.Context, id string) error {
	if err := s.check("RevokeSession"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok || sess.RevokedAt != nil {
		return auth.ErrNoSession
	}
	now := time.Now()
	sess.RevokedAt = &now
	s.byID[id] = sess
	return nil
}

func (s *Sessions) RevokeUserSessions(_ context.Context, userID string) error {
	if err := s.check("RevokeUserSessions"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, sess := range s.byID {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			s.byID[id] = sess
		}
	}
	return nil
}
