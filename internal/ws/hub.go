package ws

import (
	"context"
	"sync"
	"time"

	"github.com/samoradeng/flaggy/internal/logger"
	"github.com/samoradeng/flaggy/internal/session"
	"github.com/samoradeng/flaggy/internal/store"
)

// Hub tracks one Room per game id, creating rooms on the first subscriber
// and tearing them down when the last one leaves.
type Hub struct {
	repo     *session.Repository
	notifier *store.Notifier
	refresh  time.Duration

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewHub(repo *session.Repository, notifier *store.Notifier, refresh time.Duration) *Hub {
	if refresh <= 0 {
		refresh = 2 * time.Second
	}
	return &Hub{
		repo:     repo,
		notifier: notifier,
		refresh:  refresh,
		rooms:    make(map[string]*Room),
	}
}

// Register adds a client to its game's room, creating the room on demand.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.GameID]
	if !ok {
		room = newRoom(c.GameID, h)
		h.rooms[c.GameID] = room
		go room.Run()
	}
	h.mu.Unlock()

	if c.PlayerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.SetConnected(ctx, c.GameID, c.PlayerID, true); err != nil {
			logger.Debug("ws connect flag write failed", "game_id", c.GameID, "error", err)
		}
	}

	room.add(c)
	logger.Debug("ws client registered", "game_id", c.GameID, "player_id", c.PlayerID)
}

// Unregister drops a client, marks its player disconnected, and shuts the
// room down when it empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.GameID]
	h.mu.Unlock()
	if !ok {
		return
	}

	if room.remove(c) == 0 {
		h.mu.Lock()
		delete(h.rooms, c.GameID)
		h.mu.Unlock()
		room.shutdown()
	}

	if c.PlayerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.SetConnected(ctx, c.GameID, c.PlayerID, false); err != nil {
			logger.Debug("ws disconnect flag write failed", "game_id", c.GameID, "error", err)
		}
		h.notifier.Publish(ctx, c.GameID)
	}
}
