package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
)

// Accounts is an in-memory account.Repository.
type Accounts struct {
	Faults

	mu    sync.Mutex
	clock clock
	byID  map[string]*account.Identity
}

// NewAccounts creates an empty Accounts store.
func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[string]*account.Identity)}
}

var _ account.Repository = (*Accounts)(nil)

func (s *Accounts) Create(_ context.Context, p account.CreateParams) (*account.Identity, error) {
	if err := s.check("Create"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.taken(p.Username, p.Email, ""); err != nil {
		return nil, err
	}
	now := s.clock.now()
	i := &account.Identity{
		ID:            uuid.NewString(),
		Username:      p.Username,
		Email:         p.Email,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PasswordHash:  p.PasswordHash,
		Bio:           p.Bio,
		DateOfBirth:   p.DateOfBirth,
		ProfilePicURL: p.ProfilePicURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.byID[i.ID] = i
	out := *i
	return &out, nil
}

func (s *Accounts) GetByID(_ context.Context, id string) (*account.Identity, error) {
	if err := s.check("GetByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrNotFound, id)
	}
	out := *i
	return &out, nil
}

func (s *Accounts) GetByUsername(_ context.Context, username string) (*account.Identity, error) {
	if err := s.check("GetByUsername"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, i := range s.byID {
		if i.Username == username {
			out := *i
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", account.ErrNotFound, username)
}

func (s *Accounts) UsernameExists(_ context.Context, username, exceptID string) (bool, error) {
	if err := s.check("UsernameExists"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, i := range s.byID {
		if id != exceptID && i.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *Accounts) EmailExists(_ context.Context, email, exceptID string) (bool, error) {
	if err := s.check("EmailExists"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, i := range s.byID {
		if id != exceptID && i.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Accounts) Update(_ context.Context, id string, p account.UpdateParams) (*account.Identity, error) {
	if err := s.check("Update"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrNotFound, id)
	}
	if err := s.taken(p.Username, p.Email, id); err != nil {
		return nil, err
	}
	i.Username = p.Username
	i.Email = p.Email
	i.FirstName = p.FirstName
	i.LastName = p.LastName
	i.Bio = p.Bio
	i.DateOfBirth = p.DateOfBirth
	if p.ProfilePicURL != nil {
		i.ProfilePicURL = *p.ProfilePicURL
	}
	i.UpdatedAt = s.clock.now()
	out := *i
	return &out, nil
}

func (s *Accounts) SetAvatar(_ context.Context, id, url string) error {
	if err := s.check("SetAvatar"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", account.ErrNotFound, id)
	}
	i.ProfilePicURL = url
	i.UpdatedAt = s.clock.now()
	return nil
}

func (s *Accounts) Delete(_ context.Context, id string) error {
	if err := s.check("Delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", account.ErrNotFound, id)
	}
	delete(s.byID, id)
	return nil
}

// Len returns the number of stored identities.
func (s *Accounts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// taken mirrors the unique constraints of the users table.
func (s *Accounts) taken(username, email, exceptID string) error {
	for id, i := range s.byID {
		if id == exceptID {
			continue
		}
		if i.Username == username {
			return account.ErrUsernameTaken
		}
		if i.Email == email {
			return account.ErrEmailTaken
		}
	}
	return nil
}
