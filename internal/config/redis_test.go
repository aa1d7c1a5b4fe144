package config

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_Disabled(t *testing.T) {
	t.Setenv("REDIS_DISABLED", "true")
	assert.Nil(t, NewRedisClient())
}

func TestNewRedisClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_DISABLED", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_ADDR", mr.Addr())

	rdb := NewRedisClient()
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.Equal(t, mr.Addr(), rdb.Options().Addr)
}

func TestNewRedisClient_UnreachableIsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	t.Setenv("REDIS_DISABLED", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_ADDR", addr)
	assert.Nil(t, NewRedisClient())
}
