// Package service contains the authentication core: token issuing and
// verification (TokenService), subject resolution (UserLookup) and the
// signup, signin, refresh and admin bootstrap use cases (AuthService).
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/repository"
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// RefreshGuard records consumed refresh token IDs. Consume returns true
// only the first time it sees id.
type RefreshGuard interface {
	Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}

type SignupRequest struct {
	Email     string
	Firstname string
	Lastname  string
	Password  string
}

type SigninRequest struct {
	Email    string
	Password string
}

type RefreshRequest struct {
	RefreshToken string
}

// TokenPair is the result of a successful signin or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates signup, signin and refresh.
type AuthService struct {
	users  repository.UserStore
	lookup *UserLookup
	hasher PasswordHasher
	tokens *TokenService
	guard  RefreshGuard
	rotate bool

	// dummyHash is compared against on unknown emails so that signin
	// takes the same time whether or not the account exists.
	dummyHash string

	adminMu sync.Mutex
}

// NewAuthService wires the use cases. When rotate is true every refresh
// returns a new refresh token and the presented one is consumed in guard;
// a nil guard falls back to an in-process one.
func NewAuthService(users repository.UserStore, hasher PasswordHasher, tokens *TokenService, guard RefreshGuard, rotate bool) *AuthService {
	if guard == nil {
		guard = repository.NewMemoryTokenRepo()
	}
	s := &AuthService{
		users:  users,
		lookup: NewUserLookup(users),
		hasher: hasher,
		tokens: tokens,
		guard:  guard,
		rotate: rotate,
	}
	if h, err := hasher.Hash("timing-equalizer"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Lookup exposes the service's UserLookup to the request pipeline.
func (s *AuthService) Lookup() *UserLookup { return s.lookup }

// Tokens exposes the TokenService used by this AuthService.
func (s *AuthService) Tokens() *TokenService { return s.tokens }

// Signup registers a USER account.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Firstname = strings.TrimSpace(req.Firstname)
	req.Lastname = strings.TrimSpace(req.Lastname)
	if err := validateSignup(req); err != nil {
		return model.User{}, err
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return model.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Save(ctx, model.User{
		Email:        req.Email,
		Firstname:    req.Firstname,
		Secondname:   req.Lastname,
		Role:         model.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

// Field limits. Names and email match the users table columns; bcrypt
// ignores input past 72 bytes and golang.org/x/crypto rejects it.
const (
	maxEmailLen      = 255
	maxNameLen       = 100
	maxPasswordBytes = 72
)

func validateSignup(req SignupRequest) error {
	switch {
	case req.Email == "":
		return invalidField("email", "required")
	case req.Firstname == "":
		return invalidField("firstname", "required")
	case req.Lastname == "":
		return invalidField("lastname", "required")
	case req.Password == "":
		return invalidField("password", "required")
	}
	switch {
	case utf8.RuneCountInString(req.Email) > maxEmailLen:
		return invalidField("email", fmt.Sprintf("longer than %d characters", maxEmailLen))
	case utf8.RuneCountInString(req.Firstname) > maxNameLen:
		return invalidField("firstname", fmt.Sprintf("longer than %d characters", maxNameLen))
	case utf8.RuneCountInString(req.Lastname) > maxNameLen:
		return invalidField("lastname", fmt.Sprintf("longer than %d characters", maxNameLen))
	case len(req.Password) > maxPasswordBytes:
		return invalidField("password", fmt.Sprintf("longer than %d bytes", maxPasswordBytes))
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return invalidField("email", "malformed")
	}
	return nil
}

// Signin verifies credentials and issues an access and a refresh token.
func (s *AuthService) Signin(ctx context.Context, req SigninRequest) (TokenPair, error) {
	pair, _, err := s.SigninUser(ctx, req)
	return pair, err
}

// SigninUser is Signin that also returns the authenticated user.
func (s *AuthService) SigninUser(ctx context.Context, req SigninRequest) (TokenPair, model.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return TokenPair{}, model.User{}, invalidField("email", "required")
	}
	if req.Password == "" {
		return TokenPair{}, model.User{}, invalidField("password", "required")
	}

	u, err := s.findCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.dummyHash != "" {
				s.hasher.Verify(req.Password, s.dummyHash)
			}
			return TokenPair{}, model.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, model.User{}, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return TokenPair{}, model.User{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(u, nil)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}
	return pair, u, nil
}

// findCredentials reads the user with its password hash. Caching stores
// serve lookups without hashes, so they are asked for the stored record.
func (s *AuthService) findCredentials(ctx context.Context, email string) (model.User, error) {
	if cr, ok := s.users.(repository.CredentialReader); ok {
		return cr.FindCredentials(ctx, email)
	}
	return s.users.FindByEmail(ctx, email)
}

// Refresh exchanges a refresh token for a new access token. Every failure
// is returned as an error; there is no empty success.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (TokenPair, error) {
	pair, _, err := s.RefreshUser(ctx, req)
	return pair, err
}

// RefreshUser is Refresh that also returns the token's subject user.
func (s *AuthService) RefreshUser(ctx context.Context, req RefreshRequest) (TokenPair, model.User, error) {
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return TokenPair{}, model.User{}, invalidField("refreshToken", "required")
	}

	claims, err := s.tokens.Introspect(raw)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}
	if claims.Kind != KindRefresh {
		return TokenPair{}, model.User{}, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}

	u, err := s.lookup.Lookup(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}
	if !s.tokens.IsValid(raw, u) {
		return TokenPair{}, model.User{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	if !s.rotate {
		access, err := s.tokens.GenerateAccessToken(u)
		if err != nil {
			return TokenPair{}, model.User{}, fmt.Errorf("issue access token: %w", err)
		}
		return TokenPair{AccessToken: access, RefreshToken: raw}, u, nil
	}

	if claims.ID == "" {
		return TokenPair{}, model.User{}, fmt.Errorf("%w: missing token id", ErrInvalidToken)
	}
	first, err := s.guard.Consume(ctx, claims.ID, claims.ExpiresAt)
	if err != nil {
		return TokenPair{}, model.User{}, fmt.Errorf("consume refresh token: %w", err)
	}
	if !first {
		return TokenPair{}, model.User{}, fmt.Errorf("%w: refresh token already used", ErrInvalidToken)
	}
	pair, err := s.issuePair(u, claims.Extra)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}
	return pair, u, nil
}

func (s *AuthService) issuePair(u model.User, extra map[string]any) (TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	if extra == nil {
		extra = map[string]any{}
	}
	refresh, err := s.tokens.GenerateRefreshToken(extra, u)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
