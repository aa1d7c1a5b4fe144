package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/repository"
	"github.com/iliyamo/bearer-auth/internal/security"
	"github.com/iliyamo/bearer-auth/internal/service"
)

var testSecret = []byte("middleware-test-key-0123456789abc")

type gateFixture struct {
	tokens *service.TokenService
	lookup *service.UserLookup
	now    time.Time
	admin  model.User
	user   model.User
}

func newGate(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ts, err := service.NewTokenService(testSecret, 15*time.Minute, 24*time.Hour,
		service.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	repo := repository.NewMemoryUserRepo()
	ctx := context.Background()
	f.admin, err = repo.Save(ctx, model.User{Email: "admin@b.io", Role: model.RoleAdmin})
	require.NoError(t, err)
	f.user, err = repo.Save(ctx, model.User{Email: "user@b.io", Role: model.RoleUser})
	require.NoError(t, err)

	f.tokens = ts
	f.lookup = service.NewUserLookup(repo)
	return f
}

func (f *gateFixture) access(t *testing.T, u model.User) string {
	t.Helper()
	raw, err := f.tokens.GenerateAccessToken(u)
	require.NoError(t, err)
	return raw
}

// principalEcho returns what the handler saw in the request context.
func principalEcho(c echo.Context) error {
	p, ok := security.PrincipalFrom(c.Request().Context())
	if !ok {
		return c.String(http.StatusOK, "anonymous")
	}
	return c.String(http.StatusOK, p.User.Email+"|"+string(p.Authority))
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
