package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth/internal/security"
)

// Admin greets an ADMIN principal.
func Admin(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Hi Admin"})
}

// User greets a USER principal.
func User(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Hi User"})
}

// Me returns the principal bound to the request.
func Me(c echo.Context) error {
	p, ok := security.PrincipalFrom(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":      toUserResp(p.User),
		"authority": string(p.Authority),
	})
}
