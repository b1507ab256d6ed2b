package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/samoradeng/flaggy/internal/logger"
)

// Room is the broadcast group for one game id: it watches the shared
// record (redis notifications when available, a refresh ticker always)
// and pushes fresh snapshots to every subscribed connection.
type Room struct {
	ID  string
	hub *Hub

	mu      sync.RWMutex
	clients map[*Client]struct{}
	stop    chan struct{}
	once    sync.Once
}

func newRoom(id string, hub *Hub) *Room {
	return &Room{
		ID:      id,
		hub:     hub,
		clients: make(map[*Client]struct{}),
		stop:    make(chan struct{}),
	}
}

// Run watches for changes until the room is shut down. The ticker is the
// floor: notifications only make delivery faster, never a requirement.
func (r *Room) Run() {
	notifyCh, cancel := r.hub.notifier.Subscribe(context.Background(), r.ID)
	defer cancel()

	ticker := time.NewTicker(r.hub.refresh)
	defer ticker.Stop()

	logger.Debug("ws room started", "game_id", r.ID)
	for {
		select {
		case <-r.stop:
			logger.Debug("ws room stopped", "game_id", r.ID)
			return
		case <-ticker.C:
			r.broadcastState()
		case _, open := <-notifyCh:
			if !open {
				notifyCh = nil // fall back to the ticker alone
				continue
			}
			r.broadcastState()
		}
	}
}

func (r *Room) shutdown() {
	r.once.Do(func() { close(r.stop) })
}

func (r *Room) add(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	r.broadcastState()
}

// remove drops a client and reports how many remain.
func (r *Room) remove(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.Send)
	}
	return len(r.clients)
}

// broadcastState fetches the merged view and pushes it to every client.
// A failed fetch is skipped; subscribers keep their last snapshot, same
// as a polling client.
func (r *Room) broadcastState() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := r.hub.repo.FetchState(ctx, r.ID)
	if err != nil {
		logger.Debug("ws state fetch failed", "game_id", r.ID, "error", err)
		return
	}

	data, err := json.Marshal(Message{Type: MsgState, Payload: state})
	if err != nil {
		logger.Error("ws state marshal failed", "game_id", r.ID, "error", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		select {
		case c.Send <- data:
		default:
			// slow consumer: drop this snapshot, a newer one follows
		}
	}
}
