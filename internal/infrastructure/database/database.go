package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Conte777/affiliate-relay/config"
	affiliateentities "github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	dispatchentities "github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	targetsentities "github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/telegram"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the service
func Models() []interface{} {
	return []interface{}{
		&trackingentities.ChannelCursorModel{},
		&trackingentities.ProcessedMessageModel{},
		&trackingentities.TrackedLinkModel{},
		&affiliateentities.AffiliateDomainModel{},
		&dispatchentities.TelegramSentModel{},
		&dispatchentities.DeliveryAttemptModel{},
		&targetsentities.ChatPreferenceModel{},
		&telegram.SessionModel{},
	}
}

// Open connects to the configured driver
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresDB(cfg)
	case "sqlite":
		return NewSQLiteDB(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// NewSQLiteDB opens (or creates) a single-file database and migrates it.
// One open connection keeps writers serialized.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return db, nil
}
