package db

import (
	"fmt"

	"github.com/ikkim/gomarketplace-cart/config"
	appLogger "github.com/ikkim/gomarketplace-cart/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize opens the SQL database behind the sqlite or postgres storage driver.
func Initialize(driver string, cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		appLogger.Info("Connecting to database", map[string]interface{}{
			"driver":   driver,
			"host":     cfg.Host,
			"port":     cfg.Port,
			"database": cfg.DBName,
			"user":     cfg.User,
		})
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		appLogger.Info("Opening database file", map[string]interface{}{
			"driver": driver,
			"path":   cfg.SQLitePath,
		})
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return fmt.Errorf("driver %q is not backed by a SQL database", driver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	maxOpen := 20
	if driver == config.DriverSQLite {
		// one writer keeps sqlite from returning SQLITE_BUSY
		maxOpen = 1
	}
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetMaxOpenConns(maxOpen)

	appLogger.Info("Database connection established successfully", map[string]interface{}{
		"driver":         driver,
		"max_open_conns": maxOpen,
	})
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
