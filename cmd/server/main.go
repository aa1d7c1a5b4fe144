package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bearer-auth/internal/config"
	"github.com/iliyamo/bearer-auth/internal/database"
	"github.com/iliyamo/bearer-auth/internal/handler"
	"github.com/iliyamo/bearer-auth/internal/logging"
	"github.com/iliyamo/bearer-auth/internal/queue"
	"github.com/iliyamo/bearer-auth/internal/repository"
	"github.com/iliyamo/bearer-auth/internal/router"
	"github.com/iliyamo/bearer-auth/internal/service"
	"github.com/iliyamo/bearer-auth/internal/utils"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// User store: MySQL or in-process.
	var store repository.UserStore
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory user store; accounts are lost on restart")
		store = repository.NewMemoryUserRepo()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		store = repository.NewUserRepo(db)
	}

	// Redis is optional: user cache, rate limiter and refresh guard.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	store = repository.NewCachedUserRepo(store, rdb, config.LoadUserCacheConfig(), logger)

	var guard service.RefreshGuard
	if rdb != nil {
		guard = repository.NewTokenRepo(rdb, "refresh")
	} else {
		guard = repository.NewMemoryTokenRepo()
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	auth := service.NewAuthService(store, utils.NewBcrypt(cfg.BcryptCost), tokens, guard, cfg.RefreshRotation)

	created, err := auth.EnsureAdmin(ctx, service.AdminSeed{
		Email:      cfg.Admin.Email,
		Password:   cfg.Admin.Password,
		Firstname:  cfg.Admin.Firstname,
		Secondname: cfg.Admin.Secondname,
	})
	if err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
	if created {
		logger.Warn("default administrator created; rotate its password", "email", cfg.Admin.Email)
	}

	// Auth events.
	var events handler.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL, logger)
		if cfg.AuditConsumer {
			consumer := queue.NewAuditConsumer(cfg.AMQPURL, os.Getenv("AUDIT_LOG_PATH"), logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", "err", err)
				}
			}()
		}
	}

	e := echo.New()
	e.HideBanner = true
	router.Setup(e, router.Deps{
		Auth:      handler.NewAuthHandler(auth, events, logger),
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		Log:       logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.Store)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("server stopped")
}
