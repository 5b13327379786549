package repository

import (
	"context"
	"testing"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/db"
	"github.com/ikkim/gomarketplace-cart/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartKey = "@GoMarketPlace:cartItems"

func setupCartTest(t *testing.T) (storage.KeyValueStore, CartRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	kv := storage.NewGormStore(testDB)
	return kv, NewCartRepository(kv, cartKey)
}

func TestCartRepository_LoadMissing(t *testing.T) {
	_, repo := setupCartTest(t)

	items, found, err := repo.Load(context.Background())
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, items)
}

func TestCartRepository_SaveAndLoad(t *testing.T) {
	_, repo := setupCartTest(t)
	ctx := context.Background()

	saved := []model.CartItem{
		{ID: "p2", Title: "Cap", ImageURL: "https://img/cap.png", Price: 12, Quantity: 3},
		{ID: "p1", Title: "Mug", ImageURL: "https://img/mug.png", Price: 9.5, Quantity: 1},
	}
	require.NoError(t, repo.Save(ctx, saved))

	items, found, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, saved, items, "order and fields survive a round trip")
}

func TestCartRepository_SaveEmptyWritesArray(t *testing.T) {
	kv, repo := setupCartTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, nil))

	raw, found, err := kv.GetItem(ctx, cartKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", raw)

	items, found, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, items)
}

func TestCartRepository_LoadMalformed(t *testing.T) {
	kv, repo := setupCartTest(t)
	ctx := context.Background()

	require.NoError(t, kv.SetItem(ctx, cartKey, "{not json"))

	_, found, err := repo.Load(ctx)
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrMalformedCart)
}

func TestCartRepository_LoadCamelCaseImage(t *testing.T) {
	kv, repo := setupCartTest(t)
	ctx := context.Background()

	require.NoError(t, kv.SetItem(ctx, cartKey, `[{"id":"p1","title":"Mug","imageUrl":"u","price":1,"quantity":2}]`))

	items, _, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "u", items[0].ImageURL)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCartRepository_Key(t *testing.T) {
	_, repo := setupCartTest(t)
	assert.Equal(t, cartKey, repo.Key())
}
