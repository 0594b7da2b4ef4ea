package config

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/PodJamz/8gent-sub005/memory"
	"github.com/PodJamz/8gent-sub005/memory/remote"
	"github.com/PodJamz/8gent-sub005/migrations"
)

const memoryDSN = ":memory:"

// OpenSQLite opens the database at path, creating its directory if needed,
// and applies the embedded migrations.
func OpenSQLite(path string, logger zerolog.Logger) (*sql.DB, error) {
	path = ExpandPath(strings.TrimSpace(path))
	if path == "" {
		return nil, memory.ErrStoreUnavailable
	}
	if path != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryDSN {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// NewStoreClient creates the memory store selected by cfg.Store.Driver. The
// returned close function releases the underlying resources.
func NewStoreClient(cfg *Config, logger zerolog.Logger) (memory.StoreClient, func() error, error) {
	if cfg == nil {
		return nil, nil, memory.ErrStoreUnavailable
	}

	switch cfg.Store.Driver {
	case DriverSQLite, "":
		logger.Info().Str("path", cfg.Store.SQLitePath).Msg("Initializing database and memory store")
		db, err := OpenSQLite(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := memory.NewStore(db, logger)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		return store, db.Close, nil

	case DriverRemote:
		opts := []remote.Option{remote.WithToken(cfg.Store.RemoteToken)}
		if cfg.Store.Timeout > 0 {
			opts = append(opts, remote.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Store.Timeout) * time.Second,
			}))
		}
		client, err := remote.New(cfg.Store.RemoteURL, logger, opts...)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("url", cfg.Store.RemoteURL).Msg("Using remote memory store")
		return client, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
