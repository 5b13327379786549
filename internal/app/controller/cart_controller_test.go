package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	apperrors "github.com/ikkim/gomarketplace-cart/internal/errors"
	"github.com/ikkim/gomarketplace-cart/internal/middleware"
	"github.com/ikkim/gomarketplace-cart/internal/storage"
	ws "github.com/ikkim/gomarketplace-cart/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	*storage.MemoryStore
}

func (b *brokenStore) SetItem(ctx context.Context, key, value string) error {
	return errors.New("read-only filesystem")
}

func setupCartControllerTest(t *testing.T, kv storage.KeyValueStore) (*gin.Engine, service.CartService) {
	gin.SetMode(gin.TestMode)

	store := service.NewCartService(repository.NewCartRepository(kv, "cart"), time.Second)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = store.Flush(ctx)
	})

	cartController := NewCartController(ws.NewHub(store), []string{"*"}, time.Second)
	healthController := NewHealthController("memory")

	router := gin.New()
	router.GET("/health", middleware.CartProvider(store), healthController.Health)

	cart := router.Group("/api/v1/cart", middleware.CartProvider(store), middleware.RequireCart())
	cart.GET("", cartController.GetCart)
	cart.POST("", cartController.AddToCart)
	cart.POST("/:id/increment", cartController.Increment)
	cart.POST("/:id/decrement", cartController.Decrement)

	// no provider on purpose
	router.GET("/orphan", cartController.GetCart)

	return router, store
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) CartResponse {
	t.Helper()
	var resp CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCartController_GetEmptyCart(t *testing.T) {
	router, _ := setupCartControllerTest(t, storage.NewMemoryStore())

	w := doJSON(router, http.MethodGet, "/api/v1/cart", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"products":[],"count":0}`, w.Body.String())
}

func TestCartController_AddToCart(t *testing.T) {
	router, store := setupCartControllerTest(t, storage.NewMemoryStore())

	body := map[string]interface{}{"id": "1", "title": "Tênis", "image_url": "https://img/1.png", "price": 199.9}
	w := doJSON(router, http.MethodPost, "/api/v1/cart", body)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeCart(t, w)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "https://img/1.png", resp.Products[0].ImageURL)
	assert.Equal(t, 1, resp.Products[0].Quantity)
	assert.Equal(t, uint64(1), resp.Version)

	w = doJSON(router, http.MethodPost, "/api/v1/cart", body)
	resp = decodeCart(t, w)
	assert.Equal(t, 2, resp.Products[0].Quantity)
	assert.Equal(t, 2, store.Products()[0].Quantity)
}

func TestCartController_AddToCart_InvalidBody(t *testing.T) {
	router, store := setupCartControllerTest(t, storage.NewMemoryStore())

	w := doJSON(router, http.MethodPost, "/api/v1/cart", map[string]interface{}{"title": "no id"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.ValidationInvalidInput)
	assert.Empty(t, store.Products())
}

func TestCartController_IncrementDecrement(t *testing.T) {
	router, _ := setupCartControllerTest(t, storage.NewMemoryStore())
	doJSON(router, http.MethodPost, "/api/v1/cart", map[string]interface{}{"id": "1"})

	w := doJSON(router, http.MethodPost, "/api/v1/cart/1/increment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeCart(t, w).Products[0].Quantity)

	w = doJSON(router, http.MethodPost, "/api/v1/cart/1/decrement", nil)
	assert.Equal(t, 1, decodeCart(t, w).Products[0].Quantity)

	w = doJSON(router, http.MethodPost, "/api/v1/cart/1/decrement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCart(t, w).Products)
}

func TestCartController_UnknownID(t *testing.T) {
	router, _ := setupCartControllerTest(t, storage.NewMemoryStore())

	for _, path := range []string{"/api/v1/cart/404/increment", "/api/v1/cart/404/decrement"} {
		w := doJSON(router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.CartItemNotFound, resp.Error)
	}
}

func TestCartController_SyncReportsPersistFailure(t *testing.T) {
	router, store := setupCartControllerTest(t, &brokenStore{MemoryStore: storage.NewMemoryStore()})

	w := doJSON(router, http.MethodPost, "/api/v1/cart?sync=true", map[string]interface{}{"id": "1"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CartPersistFailed)
	assert.Len(t, store.Products(), 1, "memory keeps the mutation")
}

func TestCartController_SyncSuccess(t *testing.T) {
	kv := storage.NewMemoryStore()
	router, _ := setupCartControllerTest(t, kv)

	w := doJSON(router, http.MethodPost, "/api/v1/cart?sync=true", map[string]interface{}{"id": "1"})
	require.Equal(t, http.StatusCreated, w.Code)

	raw, found, err := kv.GetItem(context.Background(), "cart")
	require.NoError(t, err)
	assert.True(t, found)

	var items []model.CartItem
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	assert.Equal(t, "1", items[0].ID)
}

func TestCartController_NoProvider(t *testing.T) {
	router, _ := setupCartControllerTest(t, storage.NewMemoryStore())

	w := doJSON(router, http.MethodGet, "/orphan", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.InternalConfigError)
}

func TestHealthController(t *testing.T) {
	router, store := setupCartControllerTest(t, storage.NewMemoryStore())
	require.NoError(t, store.Hydrate(context.Background()))

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "memory", resp["storage"])
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
