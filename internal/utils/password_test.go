package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)

	hash, err := b.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, b.Verify("s3cret-pass", hash))
	assert.False(t, b.Verify("wrong", hash))
}

func TestBcrypt_SaltedHashesDiffer(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	h1, err := b.Hash("same")
	require.NoError(t, err)
	h2, err := b.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestNewBcrypt_OutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(99).Cost)
	assert.Equal(t, 12, NewBcrypt(12).Cost)
}

func TestVerifyPassword_GarbageHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-hash", "x"))
}
