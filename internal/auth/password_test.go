package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, hasher.Verify(hash, "hunter2"))
	assert.Error(t, hasher.Verify(hash, "wrong"))
}

func TestNewBcryptPasswordHasher_DefaultsCost(t *testing.T) {
	hasher := NewBcryptPasswordHasher(0)
	assert.Equal(t, bcrypt.DefaultCost, hasher.Cost)
}

func TestBcryptPasswordHasher_VerifyGarbageHash(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost)
	assert.Error(t, hasher.Verify("not-a-bcrypt-hash", "hunter2"))
}
