package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// LoggingMiddleware gives each request a scoped logger tagged with the
// request id, the matched route and, on cart line routes, the product id.
// One summary line is written when the handler chain returns.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		id := requestID(c)

		log := logger.WithContext(requestFields(c, id))
		c.Set(loggerKey, log)
		log.Debug("Cart request received", map[string]interface{}{
			"user_agent": c.Request.UserAgent(),
		})

		c.Next()

		status := c.Writer.Status()
		summary := map[string]interface{}{
			"status":     status,
			"latency_ms": time.Since(started).Milliseconds(),
			"bytes":      c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			summary["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("Cart request failed", nil, summary)
		case status >= 400:
			log.Warn("Cart request rejected", summary)
		default:
			log.Info("Cart request served", summary)
		}
	}
}

// requestID reuses the caller's X-Request-ID or mints one, and echoes it.
func requestID(c *gin.Context) string {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(RequestIDHeader, id)
	return id
}

func requestFields(c *gin.Context, id string) map[string]interface{} {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := map[string]interface{}{
		"request_id": id,
		"method":     c.Request.Method,
		"route":      route,
		"ip":         c.ClientIP(),
	}
	if productID := c.Param("id"); productID != "" {
		fields["product_id"] = productID
	}
	if c.Query("sync") == "true" {
		fields["sync"] = true
	}
	return fields
}

// GetLoggerFromContext returns the request logger, or the global one outside
// LoggingMiddleware.
func GetLoggerFromContext(c *gin.Context) *logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return logger.Get()
}
