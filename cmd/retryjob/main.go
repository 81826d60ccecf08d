// Command retryjob performs a single retry pass over deferred welcome-DM
// sends. It is intended to be invoked on a schedule (cron, systemd timer,
// container job): it scans the send ledger for deferred entries inside the
// configured recency window, re-resolves each recipient, redispatches, and
// exits. Exit code 1 signals that the pass itself could not run; individual
// entry failures are logged and reflected in the summary only.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mboukas/go-onboard-backend/internal/config"
	httpapi "github.com/mboukas/go-onboard-backend/internal/http"
	"github.com/mboukas/go-onboard-backend/internal/messaging"
	"github.com/mboukas/go-onboard-backend/internal/repo"
	"github.com/mboukas/go-onboard-backend/internal/services"
	"github.com/mboukas/go-onboard-backend/internal/sysutil"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	client := &http.Client{Timeout: cfg.OutboundTimeout}
	provider := httpapi.NewProvider(cfg, client)

	retry := &services.RetryService{
		DB: db,
		Dispatch: &services.DispatchService{
			DB:       db,
			Provider: provider,
			Enabled:  cfg.Messaging.Enabled,
		},
		Resolver: messaging.NewResolver(provider),
		Window:   cfg.RetryWindow,
	}

	// Bound the whole pass; a stuck provider should not wedge the scheduler.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := retry.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("retry pass aborted")
		os.Exit(1)
	}
	log.Info().
		Int("scanned", stats.Scanned).
		Int("sent", stats.Sent).
		Int("deferred", stats.Deferred).
		Int("failed", stats.Failed).
		Msg("retry job finished")
}
