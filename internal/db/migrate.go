package db

import (
	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB creates the key-value table on the given handle.
func MigrateDB(gdb *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.KVEntry{},
	}

	if err := gdb.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
