package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"bookify/internal/adapters/observability"
	"bookify/internal/app"
	"bookify/internal/shared"
	mysqlrepo "bookify/internal/storage/mysql"
)

// completer marks confirmed stays whose check-out day has arrived as
// Completed. Run it from cron; -every keeps it resident instead.
func main() {
	every := flag.Duration("every", 0, "repeat the sweep at this interval (0 = run once)")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	if cfg.Storage != shared.StorageMySQL {
		log.Fatal().Str("storage", cfg.Storage).Msg("completer needs STORAGE=mysql")
	}

	log.Info().
		Int("workers", cfg.CompleterWorkers).
		Int("batch", cfg.CompleterBatch).
		Str("tz", cfg.HotelTZ).
		Msg("completer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	svc := app.NewBookingService(repo, repo, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		start := time.Now()
		n, err := svc.CompleteDueStays(ctx, cfg.CompleterWorkers, cfg.CompleterBatch)
		observability.ObserveCompleterBatch(err, time.Since(start))
		if err != nil {
			log.Error().Err(err).Msg("sweep failed")
		} else {
			log.Info().Int("completed", n).Str("today", svc.Today().String()).Msg("sweep done")
		}
		if *every <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*every):
		}
	}
}
