// Package account provides the identity model and its PostgreSQL store.
//
// An identity owns its posts, its comments and at most one avatar asset.
// Username and email are unique. The password hash is write-only from the
// API's point of view: it is never serialized.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/database"
)

// Sentinel errors for account operations.
var (
	ErrNotFound      = errors.New("account: not found")
	ErrUsernameTaken = errors.New("account: username already taken")
	ErrEmailTaken    = errors.New("account: email already taken")
)

// Identity is a registered user.
type Identity struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	PasswordHash  string     `json:"-"`
	Bio           string     `json:"bio"`
	DateOfBirth   *time.Time `json:"dateOfBirth"`
	ProfilePicURL string     `json:"profilePicUrl"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DisplayName is "First Last".
func (i *Identity) DisplayName() string {
	return i.FirstName + " " + i.LastName
}

// MarshalJSON adds the derived display name.
func (i Identity) MarshalJSON() ([]byte, error) {
	type plain Identity
	return json.Marshal(struct {
		plain
		DisplayName string `json:"displayName"`
	}{plain(i), i.DisplayName()})
}

// CreateParams holds the fields of a new identity. PasswordHash must
// already be hashed.
type CreateParams struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Bio           string
	DateOfBirth   *time.Time
	ProfilePicURL string
}

// UpdateParams holds the mutable profile fields. The password is changed
// through another path. A nil ProfilePicURL keeps the current avatar.
type UpdateParams struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Bio           string
	DateOfBirth   *time.Time
	ProfilePicURL *string
}

// Repository is the identity persistence port.
type Repository interface {
	Create(ctx context.Context, p CreateParams) (*Identity, error)
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByUsername(ctx context.Context, username string) (*Identity, error)
	// UsernameExists and EmailExists ignore the identity exceptID so an
	// update may keep its own values.
	UsernameExists(ctx context.Context, username, exceptID string) (bool, error)
	EmailExists(ctx context.Context, email, exceptID string) (bool, error)
	Update(ctx context.Context, id string, p UpdateParams) (*Identity, error)
	SetAvatar(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

// Store provides identity CRUD backed by PostgreSQL.
type Store struct {
	db *database.DB
}

// NewStore creates an account Store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const identityColumns = `id::text, username, email, first_name, last_name, password, bio,
	date_of_birth, profile_pic_url, created_at, updated_at`

func scanIdentity(row pgx.Row) (*Identity, error) {
	var i Identity
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.FirstName, &i.LastName, &i.PasswordHash, &i.Bio,
		&i.DateOfBirth, &i.ProfilePicURL, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts a new identity. A unique violation is reported as
// ErrUsernameTaken or ErrEmailTaken.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Identity, error) {
	i, err := scanIdentity(s.db.Pool.QueryRow(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, password, bio, date_of_birth, profile_pic_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+identityColumns,
		uuid.NewString(), p.Username, p.Email, p.FirstName, p.LastName, p.PasswordHash, p.Bio, p.DateOfBirth, p.ProfilePicURL,
	))
	if err != nil {
		if taken := uniqueErr(err); taken != nil {
			return nil, taken
		}
		return nil, fmt.Errorf("account: create %q: %w", p.Username, err)
	}
	return i, nil
}

// GetByID returns an identity by id. Returns ErrNotFound if no identity
// matches or the id is not a valid UUID.
func (s *Store) GetByID(ctx context.Context, id string) (*Identity, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	i, err := scanIdentity(s.db.Pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("account: get %q: %w", id, err)
	}
	return i, nil
}

// GetByUsername returns an identity by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*Identity, error) {
	i, err := scanIdentity(s.db.Pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("account: get by username %q: %w", username, err)
	}
	return i, nil
}

func (s *Store) UsernameExists(ctx context.Context, username, exceptID string) (bool, error) {
	return s.exists(ctx, "username", username, exceptID)
}

func (s *Store) EmailExists(ctx context.Context, email, exceptID string) (bool, error) {
	return s.exists(ctx, "email", email, exceptID)
}

func (s *Store) exists(ctx context.Context, column, value, exceptID string) (bool, error) {
	// column is one of two constants above, never user input.
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE ` + column + ` = $1 AND id::text <> $2)`
	var found bool
	if err := s.db.Pool.QueryRow(ctx, query, value, exceptID).Scan(&found); err != nil {
		return false, fmt.Errorf("account: check %s: %w", column, err)
	}
	return found, nil
}

// Update overwrites the profile fields of an identity, and its avatar
// reference when p.ProfilePicURL is set, in one statement.
func (s *Store) Update(ctx context.Context, id string, p UpdateParams) (*Identity, error) {
	i, err := scanIdentity(s.db.Pool.QueryRow(ctx,
		`UPDATE users SET username = $2, email = $3, first_name = $4, last_name = $5, bio = $6,
		        date_of_birth = $7, profile_pic_url = COALESCE($8, profile_pic_url), updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+identityColumns,
		id, p.Username, p.Email, p.FirstName, p.LastName, p.Bio, p.DateOfBirth, p.ProfilePicURL,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		if taken := uniqueErr(err); taken != nil {
			return nil, taken
		}
		return nil, fmt.Errorf("account: update %q: %w", id, err)
	}
	return i, nil
}

// SetAvatar writes the avatar reference.
func (s *Store) SetAvatar(ctx context.Context, id, url string) error {
	result, err := s.db.Pool.Exec(ctx,
		`UPDATE users SET profile_pic_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("account: set avatar %q: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete permanently removes an identity record. Owned posts, comments
// and the avatar are handled by the caller.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("account: delete %q: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func uniqueErr(err error) error {
	constraint, ok := database.IsUniqueViolation(err)
	if !ok {
		return nil
	}
	if constraint == "users_email_key" {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
