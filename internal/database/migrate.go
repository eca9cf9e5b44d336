package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// newProvider returns a goose provider running the embedded migrations of the driver's dialect.
func newProvider(sqlDB *sql.DB, driver string) (*goose.Provider, error) {
	var dialect goose.Dialect
	switch driver {
	case DriverMySQL:
		dialect = goose.DialectMySQL
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	fsys, err := fs.Sub(migrations, "migrations/"+driver)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, sqlDB, fsys)
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB, driver string, log *zap.Logger) error {
	provider, err := newProvider(sqlDB, driver)
	if err != nil {
		return err
	}
	log.Info("Running migrations", zap.String("driver", driver))
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, result := range results {
		log.Info("Applied migration",
			zap.Int64("version", result.Source.Version),
			zap.Duration("duration", result.Duration),
		)
	}
	return nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, sqlDB *sql.DB, driver string, log *zap.Logger) error {
	provider, err := newProvider(sqlDB, driver)
	if err != nil {
		return err
	}
	result, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	log.Info("Reverted migration", zap.Int64("version", result.Source.Version))
	return nil
}

// MigrationStatus describes one embedded migration and whether it has been applied.
type MigrationStatus struct {
	Version int64
	Path    string
	Applied bool
}

// Status lists all embedded migrations in version order.
func Status(ctx context.Context, sqlDB *sql.DB, driver string) ([]MigrationStatus, error) {
	provider, err := newProvider(sqlDB, driver)
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	result := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		result = append(result, MigrationStatus{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return result, nil
}
