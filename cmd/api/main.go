package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"kemopage/internal/auth"
	"kemopage/internal/config"
	transporthttp "kemopage/internal/http"
	"kemopage/internal/platform/database"
	"kemopage/internal/platform/logging"
	"kemopage/internal/platform/migrate"
	"kemopage/internal/profile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional .env for local development; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	provider, err := buildAuthProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize auth provider", "error", err)
		os.Exit(1)
	}

	profileSvc := profile.NewService(repo, profile.WithUsernameProviders(cfg.UsernameProviders))
	router := transporthttp.NewRouter(cfg, provider, profileSvc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("kemopage API listening", "addr", srv.Addr, "store", cfg.DataStore, "origin", cfg.AppOrigin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (profile.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		return profile.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return profile.NewPostgresRepository(db), cleanup, nil
}

func buildAuthProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) (*auth.Provider, error) {
	if cfg.AuthIssuerURL == "" {
		logger.Warn("AUTH_ISSUER_URL not set; running without auth provider")
		return nil, nil
	}

	redirectURL := cfg.AppOrigin + "/auth/callback"
	return auth.NewProvider(ctx, cfg.AuthIssuerURL, cfg.AuthClientID, cfg.AuthClientSecret, redirectURL)
}
