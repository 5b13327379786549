package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/gomarketplace-cart/config"
	"github.com/ikkim/gomarketplace-cart/internal/app/controller"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/internal/middleware"
)

type Router struct {
	cartController   *controller.CartController
	healthController *controller.HealthController
	store            service.CartService
	config           *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	healthController *controller.HealthController,
	store service.CartService,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:   cartController,
		healthController: healthController,
		store:            store,
		config:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	router.Use(middleware.CartProvider(r.store))

	router.GET("/health", r.healthController.Health)

	v1 := router.Group("/api/v1")
	{
		cart := v1.Group("/cart", middleware.RequireCart())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("", r.cartController.AddToCart)
			cart.POST("/:id/increment", r.cartController.Increment)
			cart.POST("/:id/decrement", r.cartController.Decrement)
			cart.GET("/ws", r.cartController.WebSocketHandler)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, "+middleware.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", middleware.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
