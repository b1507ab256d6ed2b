package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/samoradeng/flaggy/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// Client is one subscribed browser connection. The socket is push-only:
// game writes go through the HTTP endpoints, the socket just delivers
// state snapshots so clients see changes faster than their poll interval.
type Client struct {
	GameID   string
	PlayerID string // empty for spectators / late joiners
	Conn     *websocket.Conn
	Send     chan []byte

	hub *Hub
}

func NewClient(gameID, playerID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		GameID:   gameID,
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, 64),
		hub:      hub,
	}
}

// Run registers with the hub and pumps until the peer goes away.
func (c *Client) Run() {
	go c.writePump()
	c.hub.Register(c)
	c.readPump()
}

func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// inbound frames are only keepalive; drop the content
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			logger.Debug("ws read closed", "game_id", c.GameID, "error", err)
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
