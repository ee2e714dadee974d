package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// SchemaState is the applied migration version.  Version 0 means no
// migration has been applied.
type SchemaState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// Migrator applies the compound store schema from a migrations source such
// as "file://migrations".  Every call opens and closes its own migrate
// instance, so a Migrator holds no connection.
type Migrator struct {
	dbURL  string
	source string
	logger logging.Logger
}

// NewMigrator targets the database at dbURL, a postgres:// URL.
func NewMigrator(dbURL, source string, logger logging.Logger) *Migrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Migrator{dbURL: dbURL, source: source, logger: logger}
}

// NewMigratorFromConfig targets the database described by cfg.
func NewMigratorFromConfig(cfg config.DatabaseConfig, logger logging.Logger) *Migrator {
	return NewMigrator(buildDSN(cfg), cfg.MigrationPath, logger)
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	if m.source == "" {
		return nil, pkgerrors.InvalidParam("migration source is not configured")
	}
	inst, err := migrate.New(m.source, m.dbURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to open migrations")
	}
	return inst, nil
}

func (m *Migrator) run(fn func(*migrate.Migrate) error) (SchemaState, error) {
	inst, err := m.open()
	if err != nil {
		return SchemaState{}, err
	}
	defer inst.Close()

	if err := fn(inst); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaState{}, err
	}
	version, dirty, err := inst.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return SchemaState{}, nil
	case err != nil:
		return SchemaState{}, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to read schema version")
	}
	return SchemaState{Version: version, Dirty: dirty}, nil
}

// Up applies every pending migration.  Nothing pending is not an error.
func (m *Migrator) Up() (SchemaState, error) {
	state, err := m.run(func(inst *migrate.Migrate) error {
		if err := inst.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to apply migrations")
		}
		return nil
	})
	if err != nil {
		return state, err
	}
	m.logger.Info("Database schema up to date",
		logging.Int64("version", int64(state.Version)),
		logging.Bool("dirty", state.Dirty))
	return state, nil
}

// Rollback reverts the last steps migrations.
func (m *Migrator) Rollback(steps int) (SchemaState, error) {
	if steps <= 0 {
		return SchemaState{}, pkgerrors.Errorf(pkgerrors.ErrCodeBadRequest, "steps must be greater than 0, got %d", steps)
	}
	state, err := m.run(func(inst *migrate.Migrate) error {
		if err := inst.Steps(-steps); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				return pkgerrors.New(pkgerrors.ErrCodeConflict, "no migrations to roll back")
			}
			return pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, fmt.Sprintf("failed to roll back %d step(s)", steps))
		}
		return nil
	})
	if err != nil {
		return state, err
	}
	m.logger.Warn("Database schema rolled back",
		logging.Int("steps", steps),
		logging.Int64("version", int64(state.Version)))
	return state, nil
}

// Status reports the applied version without changing anything.
func (m *Migrator) Status() (SchemaState, error) {
	return m.run(func(*migrate.Migrate) error { return nil })
}

// RunMigrations applies pending migrations against this connection's
// database.
func (c *Connection) RunMigrations(source string) error {
	_, err := NewMigrator(buildDSN(c.cfg), source, c.logger).Up()
	return err
}

//Personal.AI order the ending
