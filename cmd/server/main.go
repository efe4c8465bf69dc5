package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kindred-wellness/kindred/internal/config"
	"github.com/kindred-wellness/kindred/internal/database"
	"github.com/kindred-wellness/kindred/internal/handlers"
	"github.com/kindred-wellness/kindred/internal/logging"
	"github.com/kindred-wellness/kindred/internal/middleware"
	"github.com/kindred-wellness/kindred/internal/rewards"
	"github.com/kindred-wellness/kindred/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env": cfg.Server.Environment,
		})
	}

	logger.Info("Starting Kindred social graph server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)

	userService := services.NewUserService(dbAdapter)
	friendshipStore := services.NewFriendshipStore(dbAdapter)
	classifier := services.NewUserClassifier(cfg.Classifier)
	dispatcher := rewards.New(&cfg.Rewards)
	requestManager := services.NewFriendRequestManager(dbAdapter, friendshipStore, userService, classifier, dispatcher)
	inviteService := services.NewInviteLinkService(dbAdapter, friendshipStore, userService, classifier, dispatcher)
	emailService := services.NewEmailService(&cfg.Email)

	logger.Info("Reward dispatcher configured", map[string]interface{}{
		"provider": cfg.Rewards.Provider,
	})

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	friendHandler := handlers.NewFriendHandler(requestManager)
	inviteHandler := handlers.NewInviteHandler(inviteService, emailService, cfg.Server.BaseURL)

	// Initialize middleware
	secure := cfg.Server.Environment == "production"
	identity := middleware.NewIdentity(userService)
	securityHeaders := middleware.NewSecurityHeaders(secure)
	requestLogger := middleware.NewRequestLogger(logger)

	// Link creation and consumption are the abuse-prone operations; everything
	// else rides on the identity requirement alone.
	inviteRateLimiter := middleware.NewRateLimiter(redisDB.Client, 30, 1*time.Hour, "ratelimit:invites:", func(r *http.Request) string {
		user := handlers.GetUserFromContext(r.Context())
		if user != nil {
			return user.ID.String()
		}
		return ""
	}, true)

	requireUser := identity.Require

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no identity, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Friend endpoints
	mux.Handle("GET /api/friends", requireUser(http.HandlerFunc(friendHandler.List)))
	mux.Handle("DELETE /api/friends/{id}", requireUser(http.HandlerFunc(friendHandler.Remove)))
	mux.Handle("POST /api/friends/requests", requireUser(http.HandlerFunc(friendHandler.SendRequest)))
	mux.Handle("GET /api/friends/requests", requireUser(http.HandlerFunc(friendHandler.ListRequests)))
	mux.Handle("GET /api/friends/requests/sent", requireUser(http.HandlerFunc(friendHandler.ListSentRequests)))
	mux.Handle("PUT /api/friends/requests/{id}/accept", requireUser(http.HandlerFunc(friendHandler.AcceptRequest)))
	mux.Handle("PUT /api/friends/requests/{id}/reject", requireUser(http.HandlerFunc(friendHandler.RejectRequest)))

	// Invite link endpoints
	mux.Handle("POST /api/invites", requireUser(inviteRateLimiter.Middleware(http.HandlerFunc(inviteHandler.Create))))
	mux.Handle("GET /api/invites", requireUser(http.HandlerFunc(inviteHandler.List)))
	mux.Handle("GET /api/invites/validate", requireUser(http.HandlerFunc(inviteHandler.Validate)))
	mux.Handle("POST /api/invites/consume", requireUser(inviteRateLimiter.Middleware(http.HandlerFunc(inviteHandler.Consume))))
	mux.Handle("DELETE /api/invites/{id}", requireUser(http.HandlerFunc(inviteHandler.Deactivate)))
	mux.Handle("POST /api/invites/email", requireUser(inviteRateLimiter.Middleware(http.HandlerFunc(inviteHandler.EmailInvite))))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
