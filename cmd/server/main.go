// Command server is the Cybether dashboard server binary. It loads a YAML
// configuration file, opens a PostgreSQL connection pool, seeds the bootstrap
// admin account on first start, exposes the REST API over HTTP, and shuts
// down gracefully on SIGTERM or SIGINT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cybether/cybether/internal/auth"
	"github.com/cybether/cybether/internal/config"
	"github.com/cybether/cybether/internal/server/rest"
	"github.com/cybether/cybether/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the YAML configuration file (optional)")
		addr       = flag.String("addr", "", "HTTP listen address; overrides the configured value")
		logLevel   = flag.String("log-level", "", "Log level: debug | info | warn | error; overrides the configured value")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("cybether dashboard server starting", slog.String("addr", cfg.ListenAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.DSN)
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("PostgreSQL storage connected")

	if err := bootstrapAdmin(ctx, store, cfg.Admin, logger); err != nil {
		logger.Error("admin bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	tokens := auth.NewService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	restSrv := rest.NewServer(store, tokens, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      rest.NewRouter(restSrv),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP REST server listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(httpErrCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("HTTP server error", slog.Any("error", err))
		}
	}

	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", slog.Any("error", err))
	}

	logger.Info("cybether dashboard server exited cleanly")
}

// bootstrapAdmin seeds the admin account on first start. When at least one
// admin user already exists this is a no-op; otherwise the configured
// credentials are required and startup fails without them, so a fresh
// deployment can never come up with a guessable default password.
func bootstrapAdmin(ctx context.Context, store *storage.Store, cfg config.AdminConfig, logger *slog.Logger) error {
	n, err := store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil
	}
	if cfg.Password == "" {
		return errors.New("no admin user exists and no admin password is configured; set admin.password or ADMIN_PASSWORD")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user, err := store.CreateUser(ctx, cfg.Username, string(hash), true)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	logger.Info("bootstrap admin user created", slog.String("username", user.Username))
	return nil
}

// newLogger constructs a *slog.Logger that writes JSON-structured log records
// to stderr at the requested minimum level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
