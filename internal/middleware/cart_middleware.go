package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/gomarketplace-cart/internal/app/cartctx"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/internal/errors"
)

// CartProvider installs store on every request context. Handlers below it
// resolve the cart with GetCart.
func CartProvider(store service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(cartctx.WithCart(c.Request.Context(), store))
		c.Next()
	}
}

// RequireCart aborts with INTERNAL_CONFIG_ERROR when no CartProvider ran
// before it.
func RequireCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := cartctx.StoreFromContext(c.Request.Context()); err != nil {
			GetLoggerFromContext(c).Error("Cart requested outside provider", err, map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.ParseAndRespond(c, err, "cart")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCart returns the consumer view of the request's cart.
func GetCart(c *gin.Context) (cartctx.Cart, error) {
	return cartctx.FromContext(c.Request.Context())
}

// GetCartStore returns the full store, for handlers that subscribe or report status.
func GetCartStore(c *gin.Context) (service.CartService, error) {
	return cartctx.StoreFromContext(c.Request.Context())
}
