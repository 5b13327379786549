package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/internal/errors"
	"github.com/ikkim/gomarketplace-cart/internal/middleware"
	ws "github.com/ikkim/gomarketplace-cart/internal/websocket"
)

type CartController struct {
	hub         *ws.Hub
	upgrader    websocket.Upgrader
	syncTimeout time.Duration
}

// NewCartController wires the HTTP handlers. syncTimeout bounds how long a
// ?sync=true request waits for its write.
func NewCartController(hub *ws.Hub, allowedOrigins []string, syncTimeout time.Duration) *CartController {
	if syncTimeout <= 0 {
		syncTimeout = 5 * time.Second
	}
	return &CartController{
		hub:         hub,
		syncTimeout: syncTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimSpace(origin)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

type AddToCartRequest struct {
	ID       string  `json:"id" binding:"required"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price" binding:"gte=0"`
}

type CartResponse struct {
	Products []model.CartItem `json:"products"`
	Count    int              `json:"count"`
	Version  uint64           `json:"version,omitempty"`
}

// GetCart returns the cart contents
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	cart, err := middleware.GetCart(c)
	if err != nil {
		errors.ParseAndRespond(c, err, "get cart")
		return
	}

	products := cart.Products()
	c.JSON(http.StatusOK, CartResponse{
		Products: products,
		Count:    len(products),
	})
}

// AddToCart adds a product or bumps its quantity
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	cart, err := middleware.GetCart(c)
	if err != nil {
		errors.ParseAndRespond(c, err, "add to cart")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.RespondWithValidationError(c, map[string]string{
			"body": err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		errors.BadRequest(c, errors.ValidationInvalidID, "Product id must not be blank")
		return
	}

	m := cart.AddToCart(model.Product{
		ID:       req.ID,
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Price:    req.Price,
	})

	log.Info("Product added to cart", map[string]interface{}{
		"product_id": req.ID,
		"count":      len(m.Products),
	})

	ctrl.respondMutation(c, m, http.StatusCreated, "add to cart")
}

// Increment raises the quantity of a cart line by one
// POST /api/v1/cart/:id/increment
func (ctrl *CartController) Increment(c *gin.Context) {
	ctrl.changeQuantity(c, "increment")
}

// Decrement lowers the quantity of a cart line by one, removing it at zero
// POST /api/v1/cart/:id/decrement
func (ctrl *CartController) Decrement(c *gin.Context) {
	ctrl.changeQuantity(c, "decrement")
}

func (ctrl *CartController) changeQuantity(c *gin.Context, op string) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	cart, err := middleware.GetCart(c)
	if err != nil {
		errors.ParseAndRespond(c, err, op)
		return
	}

	var m *service.Mutation
	if op == "increment" {
		m, err = cart.Increment(id)
	} else {
		m, err = cart.Decrement(id)
	}
	if err != nil {
		log.Warn("Cart quantity change failed", map[string]interface{}{
			"operation":  op,
			"product_id": id,
			"error":      err.Error(),
		})
		errors.ParseAndRespond(c, err, op)
		return
	}

	ctrl.respondMutation(c, m, http.StatusOK, op)
}

// respondMutation writes the new cart. With ?sync=true it first waits for the
// persist task and reports a failed write, even though memory already changed.
func (ctrl *CartController) respondMutation(c *gin.Context, m *service.Mutation, status int, op string) {
	if c.Query("sync") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.syncTimeout)
		defer cancel()

		if err := m.Persist.Wait(ctx); err != nil {
			middleware.GetLoggerFromContext(c).Error("Cart persist failed", err, map[string]interface{}{
				"operation": op,
				"version":   m.Persist.Version(),
			})
			errors.ParseAndRespond(c, err, op)
			return
		}
	}

	c.JSON(status, CartResponse{
		Products: m.Products,
		Count:    len(m.Products),
		Version:  m.Persist.Version(),
	})
}

// WebSocketHandler streams cart snapshots
// GET /api/v1/cart/ws
func (ctrl *CartController) WebSocketHandler(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if _, err := middleware.GetCartStore(c); err != nil {
		errors.ParseAndRespond(c, err, "cart ws")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ctrl.hub.Attach(conn)

	log.Info("WebSocket connection established", map[string]interface{}{
		"client_id": client.ID,
	})
}
