package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/config"
)

// Store wraps the relational backend. All persistence in the server goes
// through the single *sql.DB it holds; backpressure is whatever the
// connection pool provides.
type Store struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

// Open opens the configured relational store and verifies connectivity.
func Open(cfg *config.StorageConfig, logger zerolog.Logger) (*Store, error) {
	var driverName, dsn string

	switch cfg.Driver {
	case "sqlite":
		driverName = "sqlite3"
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, errors.New(ErrDirectoryCreateFail, "failed to create database directory", err).
				AddContext("path", cfg.DSN)
		}
		dsn = cfg.DSN + "?_foreign_keys=on"
	case "mysql":
		driverName = "mysql"
		dsn = cfg.DSN
	default:
		return nil, errors.Newf(ErrUnsupportedDriver, "unsupported storage driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.New(ErrOpenFailed, "failed to open database", err).
			AddContext("driver", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.New(ErrPingFailed, "failed to ping database", err).
			AddContext("driver", cfg.Driver)
	}

	return &Store{
		db:     db,
		driver: cfg.Driver,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// NewStoreWithDB wraps an already-open database handle. Callers own the
// handle's lifecycle configuration; Close still closes it.
func NewStoreWithDB(db *sql.DB, driver string, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		driver: driver,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name ("sqlite" or "mysql").
func (s *Store) Driver() string {
	return s.driver
}

// BeginTx starts a transaction on the underlying handle.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return errors.New(ErrCloseFailed, "failed to close database", err)
		}
	}
	return nil
}
