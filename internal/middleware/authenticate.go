package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth/internal/metrics"
	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/security"
	"github.com/iliyamo/bearer-auth/internal/service"
)

const bearerPrefix = "Bearer "

// TokenVerifier is the part of service.TokenService the gate needs.
type TokenVerifier interface {
	Introspect(raw string) (service.Claims, error)
	IsValid(raw string, u model.User) bool
}

// UserResolver resolves a token subject to a user.
type UserResolver interface {
	Lookup(ctx context.Context, email string) (model.User, error)
}

// Authenticate returns an Echo middleware that turns a Bearer access token
// into a request-scoped security.Principal. It never rejects a request:
// a missing, malformed, expired or unresolvable token simply leaves the
// request without a principal, and the Authorize middleware decides what
// that means for the route.
func Authenticate(tokens TokenVerifier, users UserResolver, log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			auth := req.Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, bearerPrefix) {
				return next(c)
			}
			if _, bound := security.PrincipalFrom(ctx); bound {
				return next(c)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))

			claims, err := tokens.Introspect(raw)
			if err != nil {
				metrics.Authentications.WithLabelValues("invalid_token").Inc()
				log.DebugContext(ctx, "bearer token rejected", "err", err)
				return next(c)
			}
			if claims.Kind != service.KindAccess {
				metrics.Authentications.WithLabelValues("wrong_kind").Inc()
				log.DebugContext(ctx, "bearer token is not an access token", "kind", claims.Kind)
				return next(c)
			}

			u, err := users.Lookup(ctx, claims.Subject)
			if err != nil {
				metrics.Authentications.WithLabelValues("unknown_subject").Inc()
				log.DebugContext(ctx, "bearer subject not resolved", "err", err)
				return next(c)
			}
			if !tokens.IsValid(raw, u) {
				metrics.Authentications.WithLabelValues("expired").Inc()
				return next(c)
			}

			metrics.Authentications.WithLabelValues("ok").Inc()
			c.SetRequest(req.WithContext(security.WithPrincipal(ctx, security.NewPrincipal(u))))
			return next(c)
		}
	}
}

// CurrentPrincipal returns the principal bound to the request of c.
func CurrentPrincipal(c echo.Context) (security.Principal, bool) {
	return security.PrincipalFrom(c.Request().Context())
}
