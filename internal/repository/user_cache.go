package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/bearer-auth/internal/config"
	"github.com/iliyamo/bearer-auth/internal/model"
)

// cachedUser is the Redis payload for a user entry. Password hashes are
// never written to Redis.
type cachedUser struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Firstname  string    `json:"firstname"`
	Secondname string    `json:"secondname"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// CredentialReader is implemented by stores whose FindByEmail may return
// users without PasswordHash. FindCredentials always reads the stored
// record, hash included.
type CredentialReader interface {
	FindCredentials(ctx context.Context, email string) (model.User, error)
}

// CachedUserRepo is a read-through Redis cache in front of another
// UserStore. Only FindByEmail is cached, since it runs on every
// authenticated request; users it returns carry no PasswordHash. Redis
// failures fall back to the wrapped store.
type CachedUserRepo struct {
	next   UserStore
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
	group  singleflight.Group
}

// NewCachedUserRepo wraps next with a Redis cache. When the cache is
// disabled or rdb is nil, next is returned unchanged.
func NewCachedUserRepo(next UserStore, rdb *redis.Client, cfg config.UserCacheConfig, log *slog.Logger) UserStore {
	if !cfg.Enabled || rdb == nil {
		return next
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedUserRepo{next: next, rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix, log: log}
}

func (r *CachedUserRepo) key(email string) string {
	return r.prefix + ":email:" + email
}

// idKey maps a user ID to the email its entry is cached under.
func (r *CachedUserRepo) idKey(id string) string {
	return r.prefix + ":id:" + id
}

func (r *CachedUserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	key := r.key(email)
	if bs, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
		var cu cachedUser
		if err := json.Unmarshal(bs, &cu); err == nil {
			return fromCached(cu), nil
		}
	} else if err != redis.Nil {
		r.log.WarnContext(ctx, "user cache read failed", "err", err)
	}

	// Concurrent misses for the same email share one store lookup.
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		u, err := r.next.FindByEmail(ctx, email)
		if err != nil {
			return model.User{}, err
		}
		cu := toCached(u)
		if bs, err := json.Marshal(cu); err == nil {
			_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, bs, r.ttl)
				p.Set(ctx, r.idKey(u.ID), u.Email, r.ttl)
				return nil
			})
			if err != nil {
				r.log.WarnContext(ctx, "user cache write failed", "err", err)
			}
		}
		return fromCached(cu), nil
	})
	if err != nil {
		return model.User{}, err
	}
	return v.(model.User), nil
}

// FindCredentials bypasses the cache.
func (r *CachedUserRepo) FindCredentials(ctx context.Context, email string) (model.User, error) {
	if cr, ok := r.next.(CredentialReader); ok {
		return cr.FindCredentials(ctx, email)
	}
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedUserRepo) FindByRole(ctx context.Context, role model.Role) (model.User, error) {
	return r.next.FindByRole(ctx, role)
}

// Save writes through to the wrapped store and drops the cached entries
// of the saved user, under its new email and the email it was cached
// with before.
func (r *CachedUserRepo) Save(ctx context.Context, u model.User) (model.User, error) {
	var prevEmail string
	if u.ID != "" {
		email, err := r.rdb.Get(ctx, r.idKey(u.ID)).Result()
		switch {
		case err == nil:
			prevEmail = email
		case err != redis.Nil:
			r.log.WarnContext(ctx, "user cache read failed", "err", err)
		}
	}

	saved, err := r.next.Save(ctx, u)
	if err != nil {
		return model.User{}, err
	}

	keys := []string{r.key(saved.Email), r.idKey(saved.ID)}
	if prevEmail != "" && prevEmail != saved.Email {
		keys = append(keys, r.key(prevEmail))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.log.WarnContext(ctx, "user cache invalidate failed", "err", err)
	}
	return saved, nil
}

func toCached(u model.User) cachedUser {
	return cachedUser{
		ID:         u.ID,
		Email:      u.Email,
		Firstname:  u.Firstname,
		Secondname: u.Secondname,
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
	}
}

func fromCached(cu cachedUser) model.User {
	return model.User{
		ID:         cu.ID,
		Email:      cu.Email,
		Firstname:  cu.Firstname,
		Secondname: cu.Secondname,
		Role:       model.Role(cu.Role),
		CreatedAt:  cu.CreatedAt,
	}
}
