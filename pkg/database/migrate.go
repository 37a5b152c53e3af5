package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrDirtySchema is returned when a previous migration of scan_results stopped halfway.
var ErrDirtySchema = errors.New("scan history schema is dirty")

// RunMigrations brings the scan history schema up to date on the primary and
// returns the schema version it ended on. Re-running on a current schema is a no-op.
func RunMigrations(logger *zap.Logger, primaryDSN string) (uint, error) {
	d, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, "pgx5://"+primaryDSN)
	if err != nil {
		return 0, err
	}
	defer func(m *migrate.Migrate) {
		_, _ = m.Close()
	}(m)

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	logger.Info("scan_history_schema_ready", zap.Uint("version", version))
	return version, nil
}
