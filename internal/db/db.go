package db

import (
	"fmt"

	"carelink/internal/careplan"
	"carelink/internal/config"
	"carelink/internal/user"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured driver without migrating.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

// Migrate creates or updates every table the server uses.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&user.User{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	if err := conn.AutoMigrate(&careplan.CarePlan{}, &careplan.ProgressEntry{}); err != nil {
		return fmt.Errorf("migrate care plans: %w", err)
	}
	return nil
}

// Init opens the database, migrates it and stores the handle in DB.
func Init(cfg *config.Config) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(conn); err != nil {
		return err
	}
	DB = conn
	return nil
}
