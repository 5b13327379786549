package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// must stay below pongWait
	pingPeriod = (pongWait * 9) / 10

	// inbound frames are small control messages such as cart.get
	maxMessageSize       = 4 * 1024
	maxMessagesPerSecond = 10
)

// Conn wraps the gorilla connection with deadline-aware helpers.
type Conn struct {
	*websocket.Conn
}

// keepAlive bounds inbound frames and pushes the read deadline forward on
// every pong.
func (c *Conn) keepAlive() {
	c.SetReadLimit(maxMessageSize)
	c.extendRead()
	c.SetPongHandler(func(string) error {
		c.extendRead()
		return nil
	})
}

func (c *Conn) extendRead() {
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
}

// write sends one frame under writeWait.
func (c *Conn) write(messageType int, payload []byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WriteMessage(messageType, payload)
}

// ReadPump forwards client requests to the hub until the peer goes away.
func (c *Client) ReadPump() {
	defer c.detach()
	c.Conn.keepAlive()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Cart subscriber dropped", map[string]interface{}{
					"client_id": c.ID,
					"error":     err.Error(),
				})
			}
			return
		}
		c.Hub.HandleClientMessage(c, message)
	}
}

func (c *Client) detach() {
	c.Hub.unregister <- c
	c.Conn.Close()
}

// WritePump delivers cart snapshots in order and pings idle connections.
// A closed Send channel means the hub let go of the client.
func (c *Client) WritePump() {
	pings := time.NewTicker(pingPeriod)
	defer func() {
		pings.Stop()
		c.Conn.Close()
	}()

	for {
		var err error
		select {
		case snapshot, open := <-c.Send:
			if !open {
				_ = c.Conn.write(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "cart hub stopped"))
				return
			}
			err = c.Conn.write(websocket.TextMessage, snapshot)
		case <-pings.C:
			err = c.Conn.write(websocket.PingMessage, nil)
		}
		if err != nil {
			logger.Debug("Cart subscriber write stopped", map[string]interface{}{
				"client_id": c.ID,
				"error":     err.Error(),
			})
			return
		}
	}
}
