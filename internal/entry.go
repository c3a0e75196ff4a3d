// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/auth"
	"github.com/starford/othala/internal/gitvcs"
	"github.com/starford/othala/internal/images"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/vault"
)

// services is the wired domain layer shared by the HTTP and MCP entry
// points.
type services struct {
	vault  *vault.Vault
	search *search.Engine
	git    *gitvcs.Service
	auth   *auth.Service
	images *images.Service
}

// buildServices constructs the domain services from configuration.
func buildServices(ctx context.Context, cfg *Config) (*services, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	v, err := vault.New(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	git := gitvcs.NewService(v, gitvcs.NewStatusRecord())
	if !cfg.Git.Disabled {
		// A missing git binary degrades version history; it must not
		// prevent the vault from serving.
		if err := git.Init(ctx); err != nil {
			slog.Warn("version control unavailable", slog.String("error", err.Error()))
		}
	}

	return &services{
		vault:  v,
		search: search.NewEngine(v),
		git:    git,
		auth:   auth.NewService(cfg.Auth.Secret, cfg.Auth.Password, cfg.Auth.AuthEnabled()),
		images: images.NewService(v),
	}, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("auth_enabled", cfg.Auth.AuthEnabled()),
		slog.Bool("git_disabled", cfg.Git.Disabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}

	// Build API handler and router.
	h := api.NewHandler(svcs.vault, svcs.search, svcs.git, svcs.auth, svcs.images)
	apiRouter := api.NewRouter(h)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Liveness endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the auto-commit scheduler.
	if !cfg.Git.Disabled {
		sched := gitvcs.NewScheduler(svcs.git, cfg.Git.CommitInterval, cfg.Git.StartupDelay)
		g.Go(func() error {
			return sched.Run(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server with the given options. Logs go to
// stderr because the stdio transport owns stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}

	srv := mcpserver.New(svcs.vault, svcs.search, svcs.git, svcs.images)
	logger.Info("Starting MCP server on stdio", slog.String("vault_path", cfg.Vault.Path))
	return srv.ServeStdio()
}
