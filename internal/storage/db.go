package storage

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/XW123-ART/smart-test-platform/internal/config"
	"github.com/XW123-ART/smart-test-platform/internal/domain"
	"github.com/XW123-ART/smart-test-platform/internal/logging"
)

// Open connects to the configured database and runs auto-migration for
// every entity, including the bug_test_cases join table.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := logging.New("storage")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Bug{},
		&domain.TestCase{},
		&domain.AIConfig{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("connected to database and ran migrations", "driver", cfg.Driver)
	return db, nil
}
