// Package main is the entry point for the Agora API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/feed"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/router"
	"agora/internal/session"
	"agora/internal/store"
	"agora/internal/thread"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	if !cfg.IsDev() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"posts_per_page", cfg.PostsPerPage,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(context.Background(), db.DB); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (session store).
	valkeyClient, err := session.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessionStore := session.NewStore(valkeyClient, cfg.SessionTTL, cfg.SecureCookies())

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	followStore := store.NewFollowStore(db)
	postStore := store.NewPostStore(db)
	likeStore := store.NewLikeStore(db)

	// Reply trees and paged feeds are composed on top of the stores.
	trees := thread.New(postStore)
	composer := feed.NewComposer(postStore, followStore, trees, cfg.PostsPerPage)

	// Create handler groups with their dependencies.
	postHandlers := handlers.NewPosts(postStore, likeStore, trees, composer)
	h := router.Handlers{
		Admin:  handlers.NewAdmin(sessionStore, userStore, postHandlers),
		Auth:   handlers.NewAuth(sessionStore, userStore),
		Users:  handlers.NewUsers(sessionStore, userStore, followStore, composer),
		Posts:  postHandlers,
		Public: handlers.NewPublic(),
	}

	// RATE_LIMIT_AUTH=0 turns login and registration throttling off.
	var authLimiter *middleware.RateLimiter
	if cfg.AuthRateLimit > 0 {
		authLimiter = middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
		defer authLimiter.Stop()
	}

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, h, router.Options{
		SecureCookies: cfg.SecureCookies(),
		CORSOrigins:   cfg.CORSOrigins,
		TrustProxy:    cfg.TrustProxy,
		AuthLimiter:   authLimiter,
	})

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
