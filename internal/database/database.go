package database

import (
	"fmt"
	"os"
	"path/filepath"

	"tasktrophy/internal/config"
	logging "tasktrophy/internal/logging"
	"tasktrophy/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured store and runs migrations. The sqlite driver
// is the on-device default; postgres is selectable for hosted deployments.
func Open(dbConf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch dbConf.Driver {
	case "", "sqlite":
		if dir := filepath.Dir(dbConf.Path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(dbConf.Path), gormConfig)
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("unknown database driver %q", dbConf.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connection established successfully.",
		zap.String("driver", dbConf.Driver))

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	// GORM's AutoMigrate creates tables and columns; the composite breadcrumb
	// index comes from the model tags.
	err := db.AutoMigrate(
		&models.StepDay{},
		&models.RunDay{},
		&models.GpsPoint{},
		&models.FocusDay{},
		&models.SleepCycle{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}
