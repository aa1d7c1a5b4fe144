// Package router registers the HTTP routes and middleware chain of the API.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bearer-auth/internal/config"
	"github.com/iliyamo/bearer-auth/internal/handler"
	"github.com/iliyamo/bearer-auth/internal/metrics"
	"github.com/iliyamo/bearer-auth/internal/middleware"
	"github.com/iliyamo/bearer-auth/internal/model"
	"github.com/iliyamo/bearer-auth/internal/policy"
)

// Deps carries what the routes need. Redis is optional; without it rate
// limiting is off.
type Deps struct {
	Auth      *handler.AuthHandler
	Policy    *policy.Policy // nil means policy.Default()
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Log       *slog.Logger
}

// Setup installs the global middleware chain and every route on e.
func Setup(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Policy == nil {
		d.Policy = policy.Default()
	}

	// Order matters: the principal must be bound before the policy runs.
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Authenticate(d.Auth.Auth.Tokens(), d.Auth.Auth.Lookup(), d.Log))
	e.Use(middleware.Authorize(d.Policy))

	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	RegisterProtected(e)
}

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the credential endpoints under /api/v1/auth,
// behind the given rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group(policy.AuthPrefix, limiter)
	g.POST("/signup", a.Signup)
	g.POST("/signin", a.Signin)
	g.POST("/refresh", a.Refresh)
}

// RegisterProtected registers the role-guarded greeting endpoints and /me.
func RegisterProtected(e *echo.Echo) {
	admin := e.Group(policy.AdminPrefix, middleware.RequireRole(model.RoleAdmin))
	admin.GET("", handler.Admin)

	user := e.Group(policy.UserPrefix, middleware.RequireRole(model.RoleUser))
	user.GET("", handler.User)

	e.GET("/api/v1/me", handler.Me)
}
