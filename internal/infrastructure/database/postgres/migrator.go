// Package postgres holds the PostgreSQL pool, schema migrations and, under
// repositories/, the shipment store and the ranking model registry.
package postgres

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Migrator
// ─────────────────────────────────────────────────────────────────────────────

// Migrator runs golang-migrate against one database and migrations
// directory.  Every call opens and closes its own migrate instance.
type Migrator struct {
	dbURL  string
	source string
}

// NewMigrator builds a Migrator from the database section.  A relative
// MigrationPath is resolved against the working directory.
func NewMigrator(cfg config.DatabaseConfig) *Migrator {
	return &Migrator{dbURL: buildDSN(cfg), source: sourceURL(cfg.MigrationPath)}
}

// NewMigratorFromURL is for callers that already hold a connection URL.
func NewMigratorFromURL(dbURL, migrationsPath string) *Migrator {
	return &Migrator{dbURL: dbURL, source: sourceURL(migrationsPath)}
}

func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	if path == "" {
		path = "migrations"
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	mg, err := migrate.New(m.source, m.dbURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return mg, nil
}

// Up applies all pending migrations.  Nothing pending is not an error.
func (m *Migrator) Up() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("steps must be greater than 0, got %d", steps))
	}
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to rollback %d step(s)", steps))
	}
	return nil
}

// Status returns the applied version and whether a migration left the
// schema dirty.  Version 0 means nothing is applied.
func (m *Migrator) Status() (version uint, dirty bool, err error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	version, dirty, err = mg.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return version, dirty, nil
}

// Reset drops every migration and re-applies them.  Destroys all data.
func (m *Migrator) Reset() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Down(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back all migrations")
	}
	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to re-apply migrations")
	}
	return nil
}

// Force sets the recorded version without running migrations, for recovery
// from a dirty state.  -1 clears the version.
func (m *Migrator) Force(version int) error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to force version %d", version))
	}
	return nil
}

//Personal.AI order the ending
