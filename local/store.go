// Package local is the on-device store of the learner app: the shopping cart
// and the quiz attempts, kept in a single sqlite file.
package local

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Memory opens a private in-memory database, mostly useful in tests.
const Memory = ":memory:"

var (
	ErrMissingField = errors.New("course id and user id are required")
	ErrNoResult     = errors.New("no quiz result")
)

// StorageError reports a failed read or write of the device database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "local " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Store is not safe for concurrent use; the app drives it from one
// goroutine.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, storageErr("open", err)
	}
	// One connection keeps an in-memory database alive and shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("open", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, storageErr("migrate", err)
	}

	return &Store{db: db}, nil
}

func migrateUp(db *sqlx.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	drv, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	// The migrator is not closed: closing it would close db.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storageErr("close", err)
	}
	return nil
}
