package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"bookify/internal/adapters/observability"
	redisad "bookify/internal/adapters/redis"
	"bookify/internal/app"
	"bookify/internal/domain"
	"bookify/internal/shared"
	"bookify/internal/storage/memory"
	mysqlrepo "bookify/internal/storage/mysql"
)

// catalogue loads room types and rooms from a JSON file into MySQL and
// drops the API's cached catalogue so the change is visible at once.
//
//	{"room_types": [{"id": 1, "name": "Standard", "max_guests": 2, "base_price": "100.00"}],
//	 "rooms": [{"id": 1, "room_number": "101", "floor": 1, "is_available": true, "room_type": {"id": 1}}]}
func main() {
	file := flag.String("file", "", "catalogue JSON file")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}
	if cfg.Storage != shared.StorageMySQL {
		log.Fatal().Str("storage", cfg.Storage).Msg("catalogue import needs STORAGE=mysql")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("read catalogue")
	}
	var c domain.Catalogue
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("decode catalogue")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	repo := mysqlrepo.New(db)

	var cache domain.Cache = memory.NewCache()
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	svc := app.NewCatalogueService(repo, app.NewQueryService(repo, cache, cfg.CacheTTL))
	if err := svc.Import(ctx, c); err != nil {
		log.Fatal().Err(err).Msg("catalogue import failed")
	}
}
