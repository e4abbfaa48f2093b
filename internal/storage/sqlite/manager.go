// Package sqlite implements ledger storage on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Manager implements interfaces.StorageManager using SQLite.
type Manager struct {
	db     *sql.DB
	logger *common.Logger
	store  *Store
}

// NewManager opens the database configured in storage.sqlite and applies migrations.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	return Open(logger, config.Storage.SQLite.Path)
}

// Open opens (creating if needed) the database file at path and applies migrations.
func Open(logger *common.Logger, path string) (*Manager, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// One connection serialises writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("SQLite storage manager initialized")

	return &Manager{
		db:     db,
		logger: logger,
		store:  &Store{q: db, logger: logger},
	}, nil
}

func runMigrations(db *sql.DB, logger *common.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Msg("No new database migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrations applied")
	return nil
}

// Ledger returns the autocommit store.
func (m *Manager) Ledger() interfaces.LedgerStore {
	return m.store
}

// Atomic runs fn inside a transaction and commits only when fn succeeds.
func (m *Manager) Atomic(ctx context.Context, fn func(store interfaces.LedgerStore) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				m.logger.Warn().Err(rbErr).Msg("Rollback failed")
			}
		}
	}()

	if err := fn(&Store{q: tx, logger: m.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Snapshot runs fn inside a transaction that is always rolled back. SQLite pins
// the WAL read mark at the first read, so every query in fn sees the same state.
func (m *Manager) Snapshot(ctx context.Context, fn func(store interfaces.LedgerStore) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&Store{q: tx, logger: m.logger, readOnly: true})
}

// Close closes the database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
