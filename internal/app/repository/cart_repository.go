package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/storage"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

// ErrMalformedCart is returned when the persisted value does not parse as a cart.
var ErrMalformedCart = errors.New("persisted cart is malformed")

// CartRepository mirrors the whole cart into one key of a key-value store.
type CartRepository interface {
	Load(ctx context.Context) (items []model.CartItem, found bool, err error)
	Save(ctx context.Context, items []model.CartItem) error
	Key() string
}

type cartRepository struct {
	kv  storage.KeyValueStore
	key string
}

func NewCartRepository(kv storage.KeyValueStore, key string) CartRepository {
	return &cartRepository{kv: kv, key: key}
}

func (r *cartRepository) Key() string {
	return r.key
}

func (r *cartRepository) Load(ctx context.Context) ([]model.CartItem, bool, error) {
	logger.Debug("Loading cart from storage", map[string]interface{}{
		"key": r.key,
	})

	raw, found, err := r.kv.GetItem(ctx, r.key)
	if err != nil {
		logger.Error("Failed to load cart from storage", err, map[string]interface{}{
			"key": r.key,
		})
		return nil, false, err
	}
	if !found {
		logger.Debug("No persisted cart found", map[string]interface{}{
			"key": r.key,
		})
		return nil, false, nil
	}

	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Error("Persisted cart is not valid JSON", err, map[string]interface{}{
			"key":   r.key,
			"bytes": len(raw),
		})
		return nil, true, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}
	if items == nil {
		items = []model.CartItem{}
	}

	logger.Debug("Cart loaded from storage", map[string]interface{}{
		"key":   r.key,
		"count": len(items),
	})
	return items, true, nil
}

func (r *cartRepository) Save(ctx context.Context, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	if err := r.kv.SetItem(ctx, r.key, string(data)); err != nil {
		logger.Error("Failed to save cart to storage", err, map[string]interface{}{
			"key":   r.key,
			"count": len(items),
		})
		return err
	}

	logger.Debug("Cart saved to storage", map[string]interface{}{
		"key":   r.key,
		"count": len(items),
	})
	return nil
}
