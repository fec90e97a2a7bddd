package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/eventflow-io/eventflow/internal/migrations"
)

type (
	// Runner applies the embedded warehouse migrations.
	Runner struct {
		config  *Config
		migrate *migrate.Migrate
		db      *sql.DB
		logger  *slog.Logger
	}

	// migrateLogger adapts slog to the migrate.Logger interface.
	migrateLogger struct {
		logger *slog.Logger
	}
)

var _ migrate.Logger = (*migrateLogger)(nil)

// NewRunner creates a migration runner over the embedded migration set.
func NewRunner(config *Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: config.MigrationTable,
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("creating postgres driver: %w", err)
	}

	source, err := migrations.Source()
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}

	m.Log = &migrateLogger{logger: logger}

	return &Runner{
		config:  config,
		migrate: m,
		db:      db,
		logger:  logger,
	}, nil
}

// Up applies all pending migrations.
func (r *Runner) Up() error {
	err := r.migrate.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("no new migrations to apply")
	} else {
		r.logger.Info("all migrations applied")
	}

	return nil
}

// Down rolls back the last migration.
func (r *Runner) Down() error {
	err := r.migrate.Steps(-1)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("no migrations to roll back")
	} else {
		r.logger.Info("last migration rolled back")
	}

	return nil
}

// Version prints the current migration version.
func (r *Runner) Version() error {
	ver, dirty, err := r.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("Current version: no migrations applied")

			return nil
		}

		return fmt.Errorf("getting migration version: %w", err)
	}

	dirtyNote := ""
	if dirty {
		dirtyNote = " (dirty)"
	}

	fmt.Printf("Current version: %d%s\n", ver, dirtyNote)

	return nil
}

// Drop drops everything in the database. Destructive.
func (r *Runner) Drop() error {
	if err := r.migrate.Drop(); err != nil {
		return fmt.Errorf("drop failed: %w", err)
	}

	r.logger.Info("all tables dropped")

	return nil
}

// Close releases the migrate instance and the database connection.
func (r *Runner) Close() error {
	var errs []error

	if r.migrate != nil {
		sourceErr, dbErr := r.migrate.Close()
		if sourceErr != nil {
			errs = append(errs, fmt.Errorf("closing source: %w", sourceErr))
		}

		if dbErr != nil {
			errs = append(errs, fmt.Errorf("closing database instance: %w", dbErr))
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf("[migrate] "+format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
