package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/repository"
)

// UserLookup resolves a token subject to a user. It is the only place the
// request pipeline touches the user store, which keeps the blocking I/O
// boundary apart from token verification.
type UserLookup struct {
	users repository.UserStore
}

func NewUserLookup(users repository.UserStore) *UserLookup {
	return &UserLookup{users: users}
}

// Lookup returns the user owning email, or ErrUserNotFound.
func (l *UserLookup) Lookup(ctx context.Context, email string) (model.User, error) {
	u, err := l.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}
