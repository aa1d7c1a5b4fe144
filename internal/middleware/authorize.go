package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth/internal/metrics"
	"github.com/iliyamo/bearer-auth/internal/policy"
	"github.com/iliyamo/bearer-auth/internal/security"
)

// Authorize enforces p after Authenticate has run. Requests without a
// required principal get 401, requests whose principal lacks the role
// get 403.
func Authorize(p *policy.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var principal *security.Principal
			if sp, ok := CurrentPrincipal(c); ok {
				principal = &sp
			}
			d := p.Decide(c.Request().URL.Path, principal)
			metrics.Authorizations.WithLabelValues(d.String()).Inc()
			switch d {
			case policy.Unauthenticated:
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
			case policy.Forbidden:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "insufficient role"})
			}
			return next(c)
		}
	}
}
