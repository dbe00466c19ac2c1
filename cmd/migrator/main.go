package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const (
	migrationPathFlag = "migrations-path"
	directionFlag     = "direction"
	stepsFlag         = "steps"
)

type migrationLogger struct {
	verbose bool
}

func (ml migrationLogger) Printf(format string, v ...any) {
	log.Info().Str("component", "migrator").Msg(fmt.Sprintf(format, v...))
}

func (ml migrationLogger) Verbose() bool {
	return ml.verbose
}

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	migrationsPath := pflag.StringP(migrationPathFlag, "m", "migrations", "directory holding the *.sql migrations")
	direction := pflag.StringP(directionFlag, "d", "up", "up or down")
	steps := pflag.IntP(stepsFlag, "n", 0, "number of migrations to apply, 0 for all")
	pflag.Parse()

	if *direction != "up" && *direction != "down" {
		log.Fatal().Str("direction", *direction).Msgf("--%s must be up or down", directionFlag)
	}

	conf := config.CreateNewConfig()
	m, err := migrate.New(fmt.Sprintf("file://%s", *migrationsPath), databaseURL(conf.PostgreSQLConfig))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare migrations")
	}
	m.Log = migrationLogger{verbose: true}
	defer m.Close()

	err = run(m, *direction, *steps)
	if errors.Is(err, migrate.ErrNoChange) {
		m.Log.Printf("no migrations to apply")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate")
	}

	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migration applied")
}

func run(m *migrate.Migrate, direction string, steps int) error {
	switch {
	case steps > 0 && direction == "down":
		return m.Steps(-steps)
	case steps > 0:
		return m.Steps(steps)
	case direction == "down":
		return m.Down()
	default:
		return m.Up()
	}
}

func databaseURL(conf config.PostgreSQLConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.DBUsername, conf.DBPassword),
		Host:     fmt.Sprintf("%s:%s", conf.DBHost, conf.DBPort),
		Path:     conf.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
