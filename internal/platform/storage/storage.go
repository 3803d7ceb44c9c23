// Package storage opens the book Repository selected by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Tinyu01/library-management-system/internal/book"
	"github.com/Tinyu01/library-management-system/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store bundles an opened Repository with its health check and cleanup.
type Store struct {
	Repo  book.Repository
	ping  func(context.Context) error
	close func()
}

// Ping reports whether the backing storage is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the storage connection.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the storage named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := openPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Str("dsn", RedactDSN(cfg.DSN)).Msg("database connection OK")
		repo := book.NewPostgresRepo(pool, cfg.Timeout)
		return &Store{Repo: repo, ping: repo.Ping, close: pool.Close}, nil

	case config.DriverSQLite:
		db, err := book.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Str("path", cfg.SQLitePath).Msg("database connection OK")
		repo := book.NewSQLiteRepo(db, cfg.Timeout)
		return &Store{Repo: repo, ping: repo.Ping, close: closeSQL(db, logger)}, nil

	case config.DriverMemory:
		logger.Warn().Str("driver", cfg.Driver).Msg("using in-memory storage, data is lost on exit")
		return &Store{Repo: book.NewMemoryRepo()}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	return pool, nil
}

func closeSQL(db *sql.DB, logger zerolog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("close sqlite")
		}
	}
}

// RedactDSN hides the credentials of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
