package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/irsalhamdi/e-learning/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to the latest version over a dedicated
// connection, closed before returning.
func Migrate(cfg config.DB) (err error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, URL(cfg))
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() {
		serr, derr := m.Close()
		if err == nil && serr != nil {
			err = serr
		}
		if err == nil && derr != nil {
			err = derr
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
