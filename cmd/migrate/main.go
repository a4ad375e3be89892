// Command migrate applies or rolls back the embedded SQL migrations.
// Uso: go run ./cmd/migrate [up|down|version]
package main

import (
	"errors"
	"os"
	"time"

	"farmacia/internal/config"
	"farmacia/internal/infra"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, infra.DatabaseOptions{MaxOpenConns: 2})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	m, err := infra.NewMigrator(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build migrator")
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		// One step only; a full teardown is done by hand.
		err = m.Steps(-1)
	case "version":
	default:
		log.Fatal().Str("cmd", cmd).Msg("unknown command, use up|down|version")
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("cmd", cmd).Msg("migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal().Err(err).Msg("failed to read version")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Str("cmd", cmd).Msg("migrations")
}
