package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashVerify(t *testing.T) {
	m := NewManager(bcrypt.MinCost, NewJWTStrategy("secret", "blog-api", time.Hour))

	hash, err := m.Hash("password1")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", hash)
	assert.NotContains(t, hash, "password1")

	assert.True(t, m.Verify("password1", hash))
	assert.False(t, m.Verify("password2", hash))
	assert.False(t, m.Verify("password1", "not-a-hash"))

	again, err := m.Hash("password1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salted hashes differ")

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
