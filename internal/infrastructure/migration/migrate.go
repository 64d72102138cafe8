// Package migration applies the embedded PostgreSQL schema that holds the
// shelf stock, alias and order status tables.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sellerops/console/migrations"
	"go.uber.org/zap"
)

// Table records the applied schema version.
const Table = "console_schema_migrations"

// lockTimeout bounds the advisory lock wait when two instances boot together.
const lockTimeout = 2 * time.Minute

// Status is the schema version recorded in Table.
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator runs versioned migrations against one database.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New builds a Migrator over the embedded migrations.
func New(db *sql.DB, log *zap.Logger) (*Migrator, error) {
	return NewWithSource(db, migrations.FS, log)
}

// NewWithSource builds a Migrator reading *.up.sql/*.down.sql pairs from source.
func NewWithSource(db *sql.DB, source fs.FS, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: Table})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	m.LockTimeout = lockTimeout
	m.Log = zapMigrateLogger{log.Named("migrate")}
	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (mg *Migrator) Up() error {
	return mg.apply("up", mg.m.Up)
}

// Down reverts every migration, dropping the status tables.
func (mg *Migrator) Down() error {
	return mg.apply("down", mg.m.Down)
}

// Steps moves n versions forward, or back when n is negative.
func (mg *Migrator) Steps(n int) error {
	return mg.apply(fmt.Sprintf("steps %+d", n), func() error { return mg.m.Steps(n) })
}

func (mg *Migrator) apply(op string, fn func() error) error {
	before, err := mg.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("schema version %d is dirty; repair it and run force", before.Version)
	}

	switch err := fn(); {
	case errors.Is(err, migrate.ErrNoChange):
		mg.log.Info("Schema already current", zap.Uint("version", before.Version))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	after, err := mg.Status()
	if err != nil {
		return err
	}
	mg.log.Info("Schema migrated",
		zap.String("op", op),
		zap.Uint("from", before.Version),
		zap.Uint("to", after.Version),
	)
	return nil
}

// Status reports the applied version. A fresh database is version 0.
func (mg *Migrator) Status() (Status, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}

// Force records version as clean without running any SQL.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the driver. The driver shares the *sql.DB
// passed to New, so callers that keep using the pool must not call Close.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

type zapMigrateLogger struct{ log *zap.Logger }

func (l zapMigrateLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l zapMigrateLogger) Verbose() bool {
	return l.log.Core().Enabled(zap.DebugLevel)
}
