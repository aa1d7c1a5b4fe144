package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRepo records refresh token IDs that have already been exchanged,
// so a rotated refresh token cannot be replayed. Entries live in Redis
// only until the token would have expired anyway.
type TokenRepo struct {
	RDB    *redis.Client
	Prefix string
}

func NewTokenRepo(rdb *redis.Client, prefix string) *TokenRepo {
	if prefix == "" {
		prefix = "refresh"
	}
	return &TokenRepo{RDB: rdb, Prefix: prefix}
}

// Consume marks id as used. It returns true the first time an id is
// consumed and false on every later call until expiresAt.
func (r *TokenRepo) Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	return r.RDB.SetNX(ctx, r.Prefix+":used:"+id, 1, ttl).Result()
}

// MemoryTokenRepo is the in-process variant of TokenRepo, used when
// Redis is not configured. It only protects a single process.
type MemoryTokenRepo struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{used: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryTokenRepo) Consume(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, exp := range r.used {
		if !now.Before(exp) {
			delete(r.used, k)
		}
	}
	if _, ok := r.used[id]; ok {
		return false, nil
	}
	r.used[id] = expiresAt
	return true, nil
}
