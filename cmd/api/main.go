package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkaelin/account-service/internal/auth"
	"github.com/mkaelin/account-service/internal/config"
	"github.com/mkaelin/account-service/internal/handler"
	"github.com/mkaelin/account-service/internal/logging"
	"github.com/mkaelin/account-service/internal/middleware"
	"github.com/mkaelin/account-service/internal/repository"
	"github.com/mkaelin/account-service/internal/service"
)

func main() {
	// Local development convenience; in deployment the environment is set by
	// the orchestrator and no .env file exists.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("account-api", cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           buildRouter(cfg, db),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func buildRouter(cfg *config.Config, db *sql.DB) http.Handler {
	users := service.NewUserService(
		repository.NewUserRepository(db),
		auth.NewHasher(cfg.BcryptCost),
		cfg.JWTSecret,
		time.Duration(cfg.JWTTTLMins)*time.Minute,
	)

	userHandler := handler.NewUserHandler(users)
	authHandler := handler.NewAuthHandler(users)
	healthHandler := handler.NewHealthHandler(db)

	authn := middleware.Auth(cfg.JWTSecret)

	// Auth runs before Logging so the request logger carries the subject.
	public := func(h http.HandlerFunc) http.Handler {
		return middleware.Tracing(middleware.Logging(h))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Tracing(authn(middleware.Logging(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /users", public(userHandler.Register))
	mux.Handle("POST /login", public(authHandler.Login))
	mux.Handle("POST /logout", protected(authHandler.Logout))
	mux.Handle("GET /users", protected(userHandler.List))
	mux.Handle("GET /users/{id}", protected(userHandler.GetByID))
	mux.Handle("PUT /users/{id}", protected(userHandler.Update))
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	return middleware.Recovery(mux)
}
