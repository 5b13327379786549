package storage

import (
	"context"
	"fmt"

	"github.com/ikkim/gomarketplace-cart/config"
	"github.com/ikkim/gomarketplace-cart/internal/db"
	redisclient "github.com/ikkim/gomarketplace-cart/pkg/redis"
)

// Open builds the backend selected by cfg.Storage.Driver. The returned
// store's Close releases whatever connection Open created.
func Open(ctx context.Context, cfg *config.Config) (KeyValueStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil

	case config.DriverRedis:
		if err := redisclient.Init(&cfg.Redis); err != nil {
			return nil, err
		}
		return &closingStore{KeyValueStore: NewRedisStore(redisclient.GetClient()), close: redisclient.Close}, nil

	case config.DriverSQLite, config.DriverPostgres:
		if err := db.Initialize(cfg.Storage.Driver, &cfg.Database); err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &closingStore{KeyValueStore: NewGormStore(db.GetDB()), close: db.Close}, nil

	case config.DriverS3:
		return NewS3Storage(ctx, &cfg.S3), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

type closingStore struct {
	KeyValueStore
	close func() error
}

func (c *closingStore) Close() error {
	return c.close()
}
