package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/gomarketplace-cart/internal/middleware"
)

type HealthController struct {
	driver string
}

func NewHealthController(driver string) *HealthController {
	return &HealthController{driver: driver}
}

// Health reports the storage driver and cart state
// GET /health
func (ctrl *HealthController) Health(c *gin.Context) {
	store, err := middleware.GetCartStore(c)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"storage": ctrl.driver,
			"error":   err.Error(),
		})
		return
	}

	status := store.Status()
	state := "healthy"
	if !status.Hydrated || status.LastPersistError != "" {
		state = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  state,
		"storage": ctrl.driver,
		"cart":    status,
	})
}
