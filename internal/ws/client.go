package ws

import (
	"time"

	"idle_clicker/internal/logger"
	"idle_clicker/internal/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Client is one websocket connection receiving progress snapshots.
type Client struct {
	userID int64
	conn   *websocket.Conn
	hub    *Hub
	send   chan session.View
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		hub:    hub,
		send:   make(chan session.View, sendBuffer),
	}
}

// Run registers the client and pumps snapshots until the connection dies.
func (c *Client) Run() {
	c.hub.register(c)
	go c.readPump()
	c.writePump()
}

// readPump discards inbound frames; the stream is one-way. It exists to
// notice closes and answer pings.
func (c *Client) readPump() {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		select {
		case view, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(view); err != nil {
				logger.Debug("ws write failed", "user_id", c.userID, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
