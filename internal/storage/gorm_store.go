package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps values in the kv_entries table (sqlite on device, postgres on servers).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}

	var entry model.KVEntry
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		logger.Error("Failed to read key from database", err, map[string]interface{}{
			"key": key,
		})
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *GormStore) SetItem(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	entry := model.KVEntry{StorageKey: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		logger.Error("Failed to write key to database", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func (s *GormStore) RemoveItem(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&model.KVEntry{}).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the handle is owned by internal/db.
func (s *GormStore) Close() error {
	return nil
}
