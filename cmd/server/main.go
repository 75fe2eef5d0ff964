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

	"github.com/anonto42/yatube/internal/pagecache"
	"github.com/anonto42/yatube/internal/router"
	"github.com/anonto42/yatube/internal/storage"
	"github.com/anonto42/yatube/pkg/config"
	"github.com/anonto42/yatube/pkg/firebase"
	"github.com/anonto42/yatube/pkg/logger"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			zlog.Fatal("failed to initialize sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connections
	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	ctx := context.Background()
	deps := router.Dependencies{DB: db.SQL, Config: cfg, Logger: zlog}

	rdb, err := config.InitRedis(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize cache", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Cache = pagecache.NewRedisStore(rdb, config.CacheKeyPrefix)
		zlog.Info("page cache backed by redis", zap.String("addr", cfg.RedisAddr))
	} else {
		deps.Cache = pagecache.NewMemoryStore()
		zlog.Info("page cache kept in memory")
	}

	deps.Media, err = storage.Open(ctx, cfg, db.Mongo)
	if err != nil {
		zlog.Fatal("failed to initialize media storage", zap.Error(err))
	}

	// Firebase login is optional
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case errors.Is(err, firebase.ErrNotConfigured):
		zlog.Info("firebase login disabled")
	case err != nil:
		zlog.Fatal("failed to initialize firebase", zap.Error(err))
	default:
		deps.Firebase = firebaseApp.AuthClient
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Setup global middleware
	router.SetupMiddleware(e, cfg, zlog)

	// Setup routes and dependencies
	if err := router.SetupRoutes(e, deps); err != nil {
		zlog.Fatal("failed to set up routes", zap.Error(err))
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
