package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLoggingTest(t *testing.T) (*gin.Engine, *bytes.Buffer) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger.Initialize(logger.Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() {
		logger.Initialize(logger.Config{Level: "info", Format: "json", Output: &bytes.Buffer{}})
	})

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.POST("/api/v1/cart/:id/increment", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/api/v1/cart", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLoggingMiddleware_TagsCartLine(t *testing.T) {
	r, buf := setupLoggingTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/7/increment?sync=true", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	entry := lastEntry(t, buf)
	assert.Equal(t, "Cart request served", entry["message"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "7", entry["product_id"])
	assert.Equal(t, "/api/v1/cart/:id/increment", entry["route"])
	assert.Equal(t, true, entry["sync"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestLoggingMiddleware_MintsRequestID(t *testing.T) {
	r, buf := setupLoggingTest(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	entry := lastEntry(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, id, entry["request_id"])
	assert.NotContains(t, entry, "product_id")
	assert.NotContains(t, entry, "sync")
}

func TestGetLoggerFromContext_FallsBackToGlobal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, logger.Get(), GetLoggerFromContext(c))
}
