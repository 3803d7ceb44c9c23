package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/Tinyu01/library-management-system/internal/platform/logger"
	"github.com/Tinyu01/library-management-system/internal/platform/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	dir := migrationsDir()

	if *command == "create" {
		if *name == "" {
			log.Fatal().Msg("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			log.Fatal().Err(err).Msg("failed to create migration")
		}
		log.Info().Str("name", *name).Str("dir", dir).Msg("migration created")
		return
	}

	dsn := databaseDSN()
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", storage.RedactDSN(dsn)).Msg("failed to connect to database")
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := run(db, *command, dir, log); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
}

func run(db *sql.DB, command, dir string, log zerolog.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		if err := goose.Up(db, dir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info().Msg("migrations applied successfully")
	case "down":
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		log.Info().Msg("migrations rolled back successfully")
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	default:
		return fmt.Errorf("unknown command %q, use: up, down, status, version, create", command)
	}
	return nil
}
