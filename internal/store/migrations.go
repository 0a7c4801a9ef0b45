package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationRunner applies the store's schema migrations, following
// the teacher's internal/db.MigrationRunner (golang-migrate over an
// embedded iofs source).
type MigrationRunner struct {
	migrate *migrate.Migrate
}

// NewMigrationRunner wraps db for schema migration.
func NewMigrationRunner(db *sql.DB) (*MigrationRunner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("store: create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("store: create migrate instance: %w", err)
	}

	return &MigrationRunner{migrate: m}, nil
}

// Up applies all pending migrations.
func (r *MigrationRunner) Up() error {
	err := r.migrate.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: migration failed: %w", err)
	}
	return nil
}
