package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bearer-auth/internal/service"
)

func TestWriteError_Mapping(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&service.ValidationError{Field: "email", Reason: "required"}, http.StatusBadRequest, "validation_error"},
		{service.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{service.ErrUserNotFound, http.StatusUnauthorized, "user_not_found"},
		{fmt.Errorf("%w: expired", service.ErrInvalidToken), http.StatusUnauthorized, "invalid_token"},
		{errors.New("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			require.NoError(t, h.writeError(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["error"])
			assert.NotEmpty(t, body["message"])
			assert.NotContains(t, body["message"], "db down")
		})
	}
}

func TestWriteError_ValidationMessageNamesField(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, h.writeError(c, &service.ValidationError{Field: "password", Reason: "required"}))
	assert.Contains(t, rec.Body.String(), "password: required")
}
