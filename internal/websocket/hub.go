package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

const (
	// EventCartUpdated is pushed after every cart mutation and on connect.
	EventCartUpdated = "cart.updated"
	// EventCartGet asks the hub to resend the latest snapshot.
	EventCartGet = "cart.get"

	sendBufferSize = 16
)

// CartEvent is the message pushed to clients.
type CartEvent struct {
	Type     string           `json:"type"`
	Products []model.CartItem `json:"products"`
	Count    int              `json:"count"`
}

// ClientMessage is what clients may send.
type ClientMessage struct {
	Type string `json:"type"`
}

// SnapshotSource is the part of the cart store the hub needs.
type SnapshotSource interface {
	Products() []model.CartItem
	Subscribe(fn service.Listener) (unsubscribe func())
}

// Client is one websocket connection.
type Client struct {
	ID   string
	Hub  *Hub
	Conn *Conn
	Send chan []byte

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

type resendRequest struct {
	client *Client
}

// Hub fans cart snapshots out to every connected client. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	source SnapshotSource

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	resend     chan resendRequest

	// latest is the last snapshot the loop processed; new clients start from it.
	latest []byte

	mu    sync.RWMutex
	count int
}

func NewHub(source SnapshotSource) *Hub {
	return &Hub{
		source:     source,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan []byte, 1024),
		resend:     make(chan resendRequest, 256),
	}
}

func encodeSnapshot(products []model.CartItem) ([]byte, error) {
	if products == nil {
		products = []model.CartItem{}
	}
	return json.Marshal(CartEvent{
		Type:     EventCartUpdated,
		Products: products,
		Count:    len(products),
	})
}

// Run subscribes to the source and serves clients until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	unsubscribe := h.source.Subscribe(h.Publish)
	defer unsubscribe()

	latest, err := encodeSnapshot(h.source.Products())
	if err != nil {
		logger.Error("Failed to encode initial cart snapshot", err, nil)
	}
	h.latest = latest

	logger.Info("WebSocket hub started", nil)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			logger.Info("WebSocket hub stopped", nil)
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.deliver(client, h.latest)
			logger.Info("WebSocket client registered", map[string]interface{}{
				"client_id":     client.ID,
				"total_clients": len(h.clients),
			})

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				logger.Info("WebSocket client unregistered", map[string]interface{}{
					"client_id":         client.ID,
					"remaining_clients": len(h.clients),
				})
			}

		case req := <-h.resend:
			if h.clients[req.client] {
				h.deliver(req.client, h.latest)
			}

		case message := <-h.broadcast:
			h.latest = message
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

// deliver queues message for client, dropping the client if its buffer is full.
func (h *Hub) deliver(client *Client, message []byte) {
	if message == nil {
		return
	}
	select {
	case client.Send <- message:
	default:
		logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
			"client_id": client.ID,
		})
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Publish queues a snapshot for every client. It never blocks, so it is safe
// to use as a cart listener.
func (h *Hub) Publish(products []model.CartItem) {
	data, err := encodeSnapshot(products)
	if err != nil {
		logger.Error("Failed to encode cart snapshot", err, nil)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Broadcast channel full, snapshot dropped", map[string]interface{}{
			"count": len(products),
		})
	}
}

// Attach registers conn as a client and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn) *Client {
	client := &Client{
		ID:            uuid.NewString(),
		Hub:           h,
		Conn:          &Conn{Conn: conn},
		Send:          make(chan []byte, sendBufferSize),
		lastResetTime: time.Now(),
	}
	h.register <- client

	go client.WritePump()
	go client.ReadPump()
	return client
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// HandleClientMessage processes one inbound message.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"client_id": client.ID,
			"count":     count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"client_id": client.ID,
			"error":     err.Error(),
		})
		return
	}

	switch msg.Type {
	case EventCartGet:
		select {
		case h.resend <- resendRequest{client: client}:
		default:
		}
	default:
		logger.Debug("Ignoring client message", map[string]interface{}{
			"client_id": client.ID,
			"type":      msg.Type,
		})
	}
}
