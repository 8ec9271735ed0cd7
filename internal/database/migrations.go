package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// MigrateUp runs all pending migrations to bring the schema to the latest
// version.
func MigrateUp(db *DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: closing it would close the caller's *sql.DB.

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// CheckMigrationStatus verifies that the schema is at the latest version.
func CheckMigrationStatus(db *DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("get database version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", version)
	}

	src, err := iofs.New(migrationFiles, migrationDir(db.Dialect()))
	if err != nil {
		return fmt.Errorf("read migration files: %w", err)
	}
	defer src.Close()

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("determine latest version: %w", err)
	}

	if version != latest {
		return fmt.Errorf("database is at version %d but latest is %d", version, latest)
	}
	return nil
}

func migrationDir(dialect Dialect) string {
	if dialect == DialectPostgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

func newMigrate(db *DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, migrationDir(db.Dialect()))
	if err != nil {
		return nil, fmt.Errorf("create source driver: %w", err)
	}

	var (
		driver     migratedb.Driver
		driverName string
	)
	switch db.Dialect() {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
		driverName = "postgres"
	default:
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
		driverName = "sqlite3"
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	for {
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	return version, nil
}
