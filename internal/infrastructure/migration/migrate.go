package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/housing/backend/migrations"
	"go.uber.org/zap"
)

// Migrator applies the versioned directory schema
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Option configures a Migrator
type Option func(*options)

type options struct {
	source fs.FS
	dir    string
	table  string
}

// WithDirectory reads migrations from a directory on disk instead of the
// copies embedded in the binary
func WithDirectory(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithSource reads migrations from fsys
func WithSource(fsys fs.FS) Option {
	return func(o *options) {
		o.source = fsys
	}
}

// WithMigrationsTable overrides the bookkeeping table name
func WithMigrationsTable(table string) Option {
	return func(o *options) {
		o.table = table
	}
}

// New creates a Migrator over an open PostgreSQL connection. Without options
// the embedded migrations are used.
func New(db *sql.DB, logger *zap.Logger, opts ...Option) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{source: migrations.FS}
	for _, opt := range opts {
		opt(&o)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: o.table})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	var m *migrate.Migrate
	if o.dir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+o.dir, "postgres", driver)
	} else {
		src, srcErr := iofs.New(o.source, ".")
		if srcErr != nil {
			return nil, fmt.Errorf("failed to open migration source: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	m.logger.Info("Running migrations up")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("migration up failed: %w", err)
	}
	return m.logCurrent("Migrations completed")
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	m.logger.Info("Running migrations down")
	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("migration down failed: %w", err)
	}
	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Running migration steps", zap.Int("steps", n))
	if err := m.migrate.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No migrations to apply")
			return nil
		}
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return m.logCurrent("Migration steps completed")
}

// Version returns the applied version; zero means none
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is the way
// out of a dirty state after a failed migration was fixed by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) logCurrent(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
