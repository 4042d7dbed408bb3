package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash hashes a plaintext password with bcrypt at the manager's cost.
// Returns the hashed password string suitable for storage.
func (m *Manager) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

// Verify compares a plaintext password against a bcrypt hash using
// bcrypt's own constant-time comparison.
func (m *Manager) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
