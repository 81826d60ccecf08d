// Command server runs the onboarding backend HTTP API.
//
// It receives signed membership webhooks, issues magic-link onboarding
// invites, dispatches welcome direct messages, and records onboarding form
// submissions. Operational surfaces (health, metrics, Swagger, admin reads)
// are mounted alongside the public API.
//
//	@title			Onboard Backend API
//	@version		1.0
//	@description	Membership webhook intake, onboarding invites, and welcome DM dispatch.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/mboukas/go-onboard-backend/docs" // generated swagger spec
	"github.com/mboukas/go-onboard-backend/internal/config"
	httpapi "github.com/mboukas/go-onboard-backend/internal/http"
	"github.com/mboukas/go-onboard-backend/internal/observability"
	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env in dev; silently skipped when absent.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup opentelemetry")
	}

	client := &http.Client{Timeout: cfg.OutboundTimeout}
	provider := httpapi.NewProvider(cfg, client)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, provider, client)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Bool("messaging_enabled", cfg.Messaging.Enabled).
			Str("messaging_mode", cfg.Messaging.Mode).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Block until SIGINT/SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("server stopped")
}
