package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/samoradeng/flaggy/internal/logger"
	"github.com/samoradeng/flaggy/internal/ws"
)

// WS upgrades the request and subscribes the connection to its game's
// push channel. player is optional: connections without it get state
// pushes but no connected-flag bookkeeping.
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := strings.ToUpper(c.Query("game"))
		if gameID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
			return
		}
		playerID := c.Query("player")

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "game_id", gameID, "error", err)
			return
		}

		client := ws.NewClient(gameID, playerID, conn, hub)
		go client.Run()
	}
}
