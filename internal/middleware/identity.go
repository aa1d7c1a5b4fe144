package middleware

// identity.go defines helper functions shared across middleware files.

import "github.com/labstack/echo/v4"

// userID returns the ID of the request's principal, or "guest" when the
// request is unauthenticated.
func userID(c echo.Context) string {
	if p, ok := CurrentPrincipal(c); ok && p.User.ID != "" {
		return p.User.ID
	}
	return "guest"
}
