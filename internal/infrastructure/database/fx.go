package database

import (
	"context"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides database components for fx dependency injection
var Module = fx.Module("database",
	fx.Provide(NewDBWithLifecycle),
)

// NewDBWithLifecycle opens the store, migrates postgres and closes the pool on stop
func NewDBWithLifecycle(
	lc fx.Lifecycle,
	cfg *config.DatabaseConfig,
	logger zerolog.Logger,
) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" {
		if err := RunMigrations(db, cfg); err != nil {
			logger.Warn().Err(err).Msg("Failed to run migrations")
		} else {
			logger.Info().Msg("Database migrations completed successfully")
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				logger.Error().Err(err).Msg("Failed to get underlying sql.DB")
				return err
			}
			logger.Info().Msg("Closing database connection")
			return sqlDB.Close()
		},
	})

	logger.Info().
		Str("driver", cfg.Driver).
		Str("path", cfg.Path).
		Str("host", cfg.Host).
		Msg("Database connected")

	return db, nil
}
