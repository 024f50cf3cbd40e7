package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "bookify/internal/adapters/http_server"
	"bookify/internal/adapters/observability"
	redisad "bookify/internal/adapters/redis"
	"bookify/internal/app"
	"bookify/internal/auth"
	"bookify/internal/domain"
	"bookify/internal/shared"
	"bookify/internal/storage/memory"
	mysqlrepo "bookify/internal/storage/mysql"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	repo, tx, closeStore := openStore(cfg)
	defer closeStore()
	cache := openCache(cfg)

	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session setup failed")
	}

	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	b := app.NewBookingService(tx, repo, cfg.Location())
	rs := app.NewReviewService(repo, q)

	// http
	srv := server.New(cfg.Proxies()...)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	limiter := server.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	srv.MountHandlers(&server.Handlers{Q: q, B: b, R: rs},
		server.Authenticate(sessions, cfg.SessionCookie), limiter.Middleware)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Str("tz", cfg.HotelTZ).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("API stopped")
}

func openStore(cfg shared.Config) (domain.Repository, domain.TxManager, func()) {
	if cfg.Storage == shared.StorageMemory {
		st := memory.New()
		memory.SeedDemo(st)
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return st, st, func() {}
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")
	repo := mysqlrepo.New(db)
	return repo, repo, func() { _ = db.Close() }
}

func openCache(cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		log.Info().Msg("REDIS_ADDR empty, using in-process cache")
		return memory.NewCache()
	}
	c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis ping failed; cache calls will degrade to repository reads")
	}
	return c
}
