package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/bearer-auth/internal/config"
	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/utils"
)

// TokenKind separates access tokens from refresh tokens. It is carried in
// the "typ" claim.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the verified view of a token.
type Claims struct {
	Subject   string
	Kind      TokenKind
	ID        string // jti, set on refresh tokens
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// registered claims are owned by TokenService and cannot be overridden by
// caller supplied extra claims.
var registered = map[string]bool{"sub": true, "iat": true, "exp": true, "typ": true, "jti": true}

// TokenService issues and verifies HS256 signed tokens. The key and TTLs
// are fixed at construction, so a TokenService is safe for concurrent use
// without locking.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService validates the key and lifetimes. Refresh tokens must
// outlive access tokens.
func NewTokenService(secret []byte, accessTTL, refreshTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < config.MinSecretLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", config.MinSecretLength)
	}
	if accessTTL < time.Second {
		return nil, fmt.Errorf("access ttl must be at least 1s, got %s", accessTTL)
	}
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("refresh ttl %s must exceed access ttl %s", refreshTTL, accessTTL)
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	s := &TokenService{secret: key, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken issues {sub: email, iat: now, exp: now+accessTTL}.
func (s *TokenService) GenerateAccessToken(u model.User) (string, error) {
	return s.issue(u, KindAccess, s.accessTTL, nil)
}

// GenerateRefreshToken issues a refresh token for u carrying extra claims
// next to the registered ones. Each refresh token gets a unique jti.
func (s *TokenService) GenerateRefreshToken(extra map[string]any, u model.User) (string, error) {
	return s.issue(u, KindRefresh, s.refreshTTL, extra)
}

func (s *TokenService) issue(u model.User, kind TokenKind, ttl time.Duration, extra map[string]any) (string, error) {
	if u.Email == "" {
		return "", errors.New("token subject is empty")
	}
	// NumericDate has second precision; truncating keeps exp-iat == ttl exactly.
	issued := s.now().UTC().Truncate(time.Second)

	claims := make(jwt.MapClaims, len(extra)+5)
	for k, v := range extra {
		if !registered[k] {
			claims[k] = v
		}
	}
	claims["sub"] = u.Email
	claims["iat"] = issued.Unix()
	claims["exp"] = issued.Add(ttl).Unix()
	claims["typ"] = string(kind)
	if kind == KindRefresh {
		claims["jti"] = uuid.NewString()
	}
	return utils.SignHS256(s.secret, claims)
}

// Introspect verifies the signature and the structure of raw and returns
// its claims. Expiry is not judged here.
func (s *TokenService) Introspect(raw string) (Claims, error) {
	mc, err := utils.ParseHS256(s.secret, raw)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: missing expiration", ErrInvalidToken)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil || iat == nil {
		return Claims{}, fmt.Errorf("%w: missing issued-at", ErrInvalidToken)
	}
	if !exp.After(iat.Time) {
		return Claims{}, fmt.Errorf("%w: expiration not after issued-at", ErrInvalidToken)
	}

	c := Claims{
		Subject:   sub,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}
	if typ, ok := mc["typ"].(string); ok {
		c.Kind = TokenKind(typ)
	}
	if jti, ok := mc["jti"].(string); ok {
		c.ID = jti
	}
	for k, v := range mc {
		if registered[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return c, nil
}

// ExtractSubject returns the subject of a correctly signed token. It fails
// with ErrInvalidToken on malformed input or a signature mismatch.
func (s *TokenService) ExtractSubject(raw string) (string, error) {
	c, err := s.Introspect(raw)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// IsValid reports whether raw belongs to u and is not yet expired. Every
// failure, including parse errors, yields false.
func (s *TokenService) IsValid(raw string, u model.User) bool {
	c, err := s.Introspect(raw)
	if err != nil {
		return false
	}
	return c.Subject == u.Email && s.notExpired(c)
}

// notExpired is true strictly before the expiration instant.
func (s *TokenService) notExpired(c Claims) bool {
	return s.now().Before(c.ExpiresAt)
}
