package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bearer-auth/internal/config"
	"github.com/iliyamo/bearer-auth/internal/handler"
	"github.com/iliyamo/bearer-auth/internal/queue"
	"github.com/iliyamo/bearer-auth/internal/repository"
	"github.com/iliyamo/bearer-auth/internal/service"
	"github.com/iliyamo/bearer-auth/internal/utils"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type server struct {
	e      *echo.Echo
	auth   *service.AuthService
	events *recordingPublisher
}

func newServer(t *testing.T, rl config.RateLimitConfig, rdb *redis.Client) *server {
	t.Helper()
	tokens, err := service.NewTokenService([]byte("router-test-signing-key-012345678"), 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	auth := service.NewAuthService(repository.NewMemoryUserRepo(), utils.NewBcrypt(bcrypt.MinCost), tokens, nil, true)
	_, err = auth.EnsureAdmin(context.Background(), service.AdminSeed{
		Email: "admin1@gmail.com", Password: "admin", Firstname: "adminFirstname", Secondname: "adminSecondname",
	})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &recordingPublisher{}
	e := echo.New()
	Setup(e, Deps{
		Auth:      handler.NewAuthHandler(auth, events, log),
		RateLimit: rl,
		Redis:     rdb,
		Log:       log,
	})
	return &server{e: e, auth: auth, events: events}
}

func (s *server) call(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func signin(t *testing.T, s *server, email, password string) (string, string) {
	t.Helper()
	rec := s.call(http.MethodPost, "/api/v1/auth/signin", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestEndToEnd_SignupSigninGate(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)

	rec := s.call(http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"ann@example.com","firstname":"Ann","lastname":"Lee","password":"pa55word"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode(t, rec)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.Equal(t, "Lee", user["secondname"])
	assert.Equal(t, "USER", user["role"])
	assert.NotContains(t, rec.Body.String(), "password")

	access, _ := signin(t, s, "ann@example.com", "pa55word")

	rec = s.call(http.MethodGet, "/api/v1/user", access, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi User", decode(t, rec)["message"])

	rec = s.call(http.MethodGet, "/api/v1/admin", access, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.call(http.MethodGet, "/api/v1/me", access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "USER", me["authority"])
}

func TestEndToEnd_AdminBootstrap(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	access, _ := signin(t, s, "admin1@gmail.com", "admin")

	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/api/v1/admin", access, "").Code)
	assert.Equal(t, http.StatusForbidden, s.call(http.MethodGet, "/api/v1/user", access, "").Code)
}

func TestEndToEnd_Unauthenticated(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	for _, p := range []string{"/api/v1/admin", "/api/v1/user", "/api/v1/me", "/api/v1/unknown"} {
		rec := s.call(http.MethodGet, p, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
		assert.Equal(t, "unauthorized", decode(t, rec)["error"])
	}
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/metrics", "", "").Code)
}

func TestEndToEnd_SignupErrors(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	body := `{"email":"ann@example.com","firstname":"Ann","lastname":"Lee","password":"x"}`
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/api/v1/auth/signup", "", body).Code)

	rec := s.call(http.MethodPost, "/api/v1/auth/signup", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_email", decode(t, rec)["error"])

	rec = s.call(http.MethodPost, "/api/v1/auth/signup", "", `{"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec)["error"])

	rec = s.call(http.MethodPost, "/api/v1/auth/signup", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndToEnd_SignupOverlongFieldsAreRejected(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	cases := map[string]string{
		"password":  `{"email":"ann@example.com","firstname":"Ann","lastname":"Lee","password":"` + strings.Repeat("a", 73) + `"}`,
		"firstname": `{"email":"ann@example.com","firstname":"` + strings.Repeat("A", 101) + `","lastname":"Lee","password":"pw"}`,
		"email":     `{"email":"` + strings.Repeat("a", 251) + `@example.com","firstname":"Ann","lastname":"Lee","password":"pw"}`,
	}
	for field, body := range cases {
		t.Run(field, func(t *testing.T) {
			rec := s.call(http.MethodPost, "/api/v1/auth/signup", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "validation_error", decode(t, rec)["error"])
		})
	}

	rec := s.call(http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"ann@example.com","firstname":"Ann","lastname":"Lee","password":"`+strings.Repeat("a", 72)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEndToEnd_SigninWrongPassword(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	rec := s.call(http.MethodPost, "/api/v1/auth/signin", "", `{"email":"admin1@gmail.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid_credentials", body["error"])
	assert.NotContains(t, body, "accessToken")
}

func TestEndToEnd_Refresh(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	access, refresh := signin(t, s, "admin1@gmail.com", "admin")

	rec := s.call(http.MethodPost, "/api/v1/auth/refresh", "", `{"refreshToken":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode(t, rec)
	assert.NotEqual(t, refresh, next["refreshToken"])
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/api/v1/admin", next["accessToken"].(string), "").Code)

	// replay of the consumed refresh token
	rec = s.call(http.MethodPost, "/api/v1/auth/refresh", "", `{"refreshToken":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decode(t, rec)["error"])

	// access tokens are not refresh tokens
	rec = s.call(http.MethodPost, "/api/v1/auth/refresh", "", `{"refreshToken":"`+access+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEndToEnd_PublishesEvents(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	s.call(http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"ann@example.com","firstname":"Ann","lastname":"Lee","password":"pw"}`)
	_, refresh := signin(t, s, "ann@example.com", "pw")
	s.call(http.MethodPost, "/api/v1/auth/refresh", "", `{"refreshToken":"`+refresh+`"}`)

	assert.Eventually(t, func() bool { return len(s.events.types()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []queue.EventType{
		queue.EventUserRegistered, queue.EventUserSignedIn, queue.EventTokenRefreshed,
	}, s.events.types())
}

func TestEndToEnd_SigninEventCarriesUserForPaddedEmail(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{}, nil)
	rec := s.call(http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"ann@example.com","firstname":"Ann","lastname":"Lee","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	userID := decode(t, rec)["id"]

	rec = s.call(http.MethodPost, "/api/v1/auth/signin", "", `{"email":"  ann@example.com ","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Eventually(t, func() bool { return len(s.events.types()) == 2 }, 2*time.Second, 10*time.Millisecond)
	s.events.mu.Lock()
	defer s.events.mu.Unlock()
	var signedIn queue.AuthEvent
	for _, ev := range s.events.events {
		if ev.Type == queue.EventUserSignedIn {
			signedIn = ev
		}
	}
	assert.Equal(t, userID, signedIn.UserID)
	assert.Equal(t, "ann@example.com", signedIn.Email)
	assert.Equal(t, "USER", signedIn.Role)
}

func TestEndToEnd_RateLimitedAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	rl := config.RateLimitConfig{
		Enabled: true, Capacity: 3, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "rl:auth",
	}
	s := newServer(t, rl, rdb)

	body := `{"email":"admin1@gmail.com","password":"nope"}`
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.call(http.MethodPost, "/api/v1/auth/signin", "", body).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, s.call(http.MethodPost, "/api/v1/auth/signin", "", body).Code)

	// other routes are not limited
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/healthz", "", "").Code)
}
