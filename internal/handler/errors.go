package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth/internal/service"
)

// errorCode classifies a service error for responses and metrics.
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return "validation_error"
	case errors.Is(err, service.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, service.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, service.ErrInvalidToken):
		return "invalid_token"
	}
	return "internal_error"
}

var statusByCode = map[string]int{
	"validation_error":    http.StatusBadRequest,
	"duplicate_email":     http.StatusConflict,
	"invalid_credentials": http.StatusUnauthorized,
	"user_not_found":      http.StatusUnauthorized,
	"invalid_token":       http.StatusUnauthorized,
	"internal_error":      http.StatusInternalServerError,
}

var messageByCode = map[string]string{
	"duplicate_email":     "email already registered",
	"invalid_credentials": "invalid email or password",
	"user_not_found":      "token subject does not exist",
	"invalid_token":       "invalid or expired token",
	"internal_error":      "internal error",
}

// writeError maps err to exactly one HTTP response. Internal errors are
// logged; their details never reach the client.
func (h *AuthHandler) writeError(c echo.Context, err error) error {
	code := errorCode(err)
	msg, ok := messageByCode[code]
	if code == "validation_error" {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			msg = ve.Error()
		} else {
			msg = "invalid request"
		}
	} else if !ok {
		msg = code
	}
	if code == "internal_error" {
		h.Log.ErrorContext(c.Request().Context(), "auth request failed", "path", c.Path(), "err", err)
	}
	return c.JSON(statusByCode[code], echo.Map{"error": code, "message": msg})
}
