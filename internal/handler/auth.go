package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth/internal/metrics"
	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/queue"
	"github.com/iliyamo/bearer-auth/internal/service"
)

// EventPublisher delivers auth events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// AuthHandler bundles dependencies for the /auth endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Events EventPublisher // optional
	Log    *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, events EventPublisher, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{Auth: auth, Events: events, Log: log}
}

// ----- DTOs -----

type signupReq struct {
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Password  string `json:"password"`
}

type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// userResp is the outward view of a user; it has no password field.
type userResp struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Firstname  string `json:"firstname"`
	Secondname string `json:"secondname"`
	Role       string `json:"role"`
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, Firstname: u.Firstname, Secondname: u.Secondname, Role: string(u.Role)}
}

// Signup: create a USER account and return it.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		metrics.Signups.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": "invalid body"})
	}

	u, err := h.Auth.Signup(c.Request().Context(), service.SignupRequest{
		Email:     req.Email,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Password:  req.Password,
	})
	if err != nil {
		metrics.Signups.WithLabelValues(errorCode(err)).Inc()
		return h.writeError(c, err)
	}

	metrics.Signups.WithLabelValues("ok").Inc()
	h.publish(c, queue.EventUserRegistered, u)
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Signin: verify credentials and return an access/refresh pair.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		metrics.Signins.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": "invalid body"})
	}

	ctx := c.Request().Context()
	pair, u, err := h.Auth.SigninUser(ctx, service.SigninRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		metrics.Signins.WithLabelValues(errorCode(err)).Inc()
		return h.writeError(c, err)
	}

	metrics.Signins.WithLabelValues("ok").Inc()
	h.publish(c, queue.EventUserSignedIn, u)
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh: exchange a refresh token for a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		metrics.Refreshes.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": "invalid body"})
	}

	ctx := c.Request().Context()
	pair, u, err := h.Auth.RefreshUser(ctx, service.RefreshRequest{RefreshToken: req.RefreshToken})
	if err != nil {
		metrics.Refreshes.WithLabelValues(errorCode(err)).Inc()
		return h.writeError(c, err)
	}

	metrics.Refreshes.WithLabelValues("ok").Inc()
	h.publish(c, queue.EventTokenRefreshed, u)
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// publish emits ev in the background so a slow or absent broker never
// delays the response.
func (h *AuthHandler) publish(c echo.Context, typ queue.EventType, u model.User) {
	if h.Events == nil {
		return
	}
	ev := queue.AuthEvent{
		Type:       typ,
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		RemoteIP:   c.RealIP(),
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Events.Publish(ctx, ev)
	}()
}
