package repository

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate применяет все ожидающие миграции схемы.
// databaseURL должен использовать схему pgx5:// (см. config.DBConfig.MigrationURL).
func Migrate(databaseURL string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		// Предыдущий запуск упал посреди миграции: помечаем предыдущую версию
		// чистой и повторяем упавшую (миграции идемпотентны)
		logger.Warn("Schema is dirty, retrying last migration", zap.Uint("version", version))
		prev := int(version) - 1
		if prev < 1 {
			prev = database.NilVersion
		}
		if err := m.Force(prev); err != nil {
			return fmt.Errorf("failed to force schema version: %w", err)
		}
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Schema is up to date", zap.Uint("version", version))
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Schema migrated", zap.Uint("version", newVersion))
	return nil
}
