package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"bookify/internal/adapters/observability"
	"bookify/internal/auth"
	"bookify/internal/shared"
)

// token mints a session token for operators and local testing, e.g.
//
//	SESSION_SECRET=... go run ./cmd/token -user ops -role admin
func main() {
	user := flag.String("user", "", "user id (token subject)")
	role := flag.String("role", auth.RoleGuest, "guest or admin")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session setup failed")
	}
	tok, err := sessions.Issue(*user, *role)
	if err != nil {
		log.Fatal().Err(err).Msg("issue failed")
	}
	fmt.Fprintln(os.Stdout, tok)
}
