// Package database provides database setup, models, and the data access
// layer (Store) for conversation state.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/migrations"

	_ "github.com/lib/pq"       //revive:disable:blank-imports
	_ "modernc.org/sqlite"      //revive:disable:blank-imports
)

// NewDB resolves the configured database (managed PostgreSQL or the local
// SQLite fallback), connects, applies migrations for the matching dialect,
// and returns the connection pool along with the driver name in use.
func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, string, error) {
	driver, dsn := cfg.Resolve()

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database (%s): %w", driver, err)
	}

	if driver == config.DriverSQLite {
		// SQLite does not support concurrent writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := ApplyMigrations(db.DB, driver); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, "", fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied", "driver", driver)
	return db, driver, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed.")
	}
}

// ApplyMigrations runs the embedded migrations for the given driver.
func ApplyMigrations(db *sql.DB, driver string) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}

	sourceDir := "sqlite"
	if driver == config.DriverPostgres {
		sourceDir = "postgres"
	}

	sourceDriver, err := iofs.New(migrations.FS, sourceDir)
	if err != nil {
		return fmt.Errorf("failed to create embed source driver: %w", err)
	}

	var migrator *migrate.Migrate

	switch driver {
	case config.DriverPostgres:
		d, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
		migrator, err = migrate.NewWithInstance("iofs", sourceDriver, "postgres", d)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	case config.DriverSQLite:
		d, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
		migrator, err = migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", d)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	slog.Info("Applying database migrations...", "dialect", sourceDir)

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}
