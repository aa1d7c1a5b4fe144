package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bearer-auth/internal/model"
)

// MemoryUserRepo keeps users in process memory. It is used for local
// development (APP_STORE=memory) and by tests.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string // email -> id
	order   []string          // ids in insertion order
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepo) FindByRole(_ context.Context, role model.Role) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if u := r.byID[id]; u.Role == role {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (r *MemoryUserRepo) Save(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byEmail[u.Email]; ok && owner != u.ID {
		return model.User{}, ErrEmailExists
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
		u.CreatedAt = time.Now().UTC()
		r.order = append(r.order, u.ID)
	} else if prev, ok := r.byID[u.ID]; ok {
		if prev.Email != u.Email {
			delete(r.byEmail, prev.Email)
		}
	} else {
		return model.User{}, ErrNotFound
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

// Len returns the number of stored users.
func (r *MemoryUserRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
