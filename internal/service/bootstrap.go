package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/repository"
)

// AdminSeed is the account EnsureAdmin creates when no ADMIN exists.
type AdminSeed struct {
	Email      string
	Password   string
	Firstname  string
	Secondname string
}

// EnsureAdmin creates the default administrator unless an ADMIN already
// exists. It reports whether a user was created. Calls within one process
// are serialised, so running it twice never yields two admins.
func (s *AuthService) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	if seed.Email == "" || seed.Password == "" {
		return false, errors.New("admin seed needs email and password")
	}

	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	if _, err := s.users.FindByRole(ctx, model.RoleAdmin); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.users.Save(ctx, model.User{
		Email:        seed.Email,
		Firstname:    seed.Firstname,
		Secondname:   seed.Secondname,
		Role:         model.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return false, fmt.Errorf("save admin: %w", err)
	}
	return true, nil
}
