package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/adapter/state"
	"github.com/arturoeanton/twitter-action-broker/internal/adapter/store"
	"github.com/arturoeanton/twitter-action-broker/internal/adapter/twitter"
	"github.com/arturoeanton/twitter-action-broker/internal/handler"
	"github.com/arturoeanton/twitter-action-broker/internal/middleware"
	"github.com/arturoeanton/twitter-action-broker/internal/service"
	"github.com/arturoeanton/twitter-action-broker/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting Twitter action broker",
		"port", cfg.Port,
		"callback_url", cfg.TwitterCallbackURL,
		"frontend_url", cfg.FrontendURL,
	)
	if cfg.TwitterClientID == "" {
		slog.Warn("TWITTER_CLIENT_ID is empty, logins will fail at the provider")
	}
	if cfg.StateSecret == "" {
		slog.Warn("OAUTH_STATE_SECRET is empty, using a random key for this process")
	}

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.Migrate(); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	provider := twitter.NewProvider(twitter.ProviderConfig{
		ClientID:     cfg.TwitterClientID,
		ClientSecret: cfg.TwitterClientSecret,
		CallbackURL:  cfg.TwitterCallbackURL,
		Scopes:       cfg.TwitterScopes,
		AuthURL:      cfg.TwitterAuthURL,
		TokenURL:     cfg.TwitterTokenURL,
		RevokeURL:    cfg.TwitterRevokeURL,
		APIURL:       cfg.TwitterAPIURL,
	})

	sealer, err := state.NewSealer(cfg.StateSecret, cfg.StateTTL)
	if err != nil {
		slog.Error("failed to init state sealer", "error", err)
		os.Exit(1)
	}

	// ── Services ─────────────────────────────────────────────────────────
	tokenGuard := service.NewTokenGuard(provider, pgStore)
	authService := service.NewAuthService(provider, sealer, pgStore)
	tweetService := service.NewTweetService(pgStore, pgStore)
	statsService := service.NewStatsService(pgStore, pgStore)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: handler.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Refresh-Token", "X-Expires-At", "X-Twitter-Id"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	// Audit middleware (logs all requests)
	audit := middleware.NewAudit(pgStore)
	app.Use(audit.Middleware())

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api")
	guard := middleware.TokenGuard(tokenGuard)

	handler.NewHealthHandler(pgStore).Register(api)
	handler.NewAuthHandler(authService, cfg.FrontendURL).Register(api, guard)
	handler.NewTweetHandler(tweetService).Register(api, guard)
	handler.NewUserHandler(statsService).Register(api, guard)

	// ── Start ────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("🌐 Fiber listening", "port", cfg.Port)
		return app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// In-flight requests first, then the audit writes they queued.
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		if err := audit.Wait(shutdownCtx); err != nil {
			slog.Warn("audit writes still pending at shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server failed", "error", err)
		pgStore.Close()
		os.Exit(1)
	}
	slog.Info("server stopped")
}
