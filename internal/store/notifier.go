package store

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/samoradeng/flaggy/internal/logger"
)

// Notifier publishes best-effort change notifications for game records
// over redis pub/sub. It is strictly an accelerator on top of polling:
// when redis is absent or down every method degrades to a no-op and
// subscribers fall back to their poll interval.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier connects to redis. An empty addr, or a failed ping, yields
// a disabled notifier rather than an error.
func NewNotifier(addr, password string, db int) *Notifier {
	if addr == "" {
		return &Notifier{}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; change notifications disabled", "error", err)
		return &Notifier{}
	}
	return &Notifier{rdb: rdb}
}

// Client exposes the underlying redis client for middleware that shares
// the connection; nil when the notifier is disabled.
func (n *Notifier) Client() *redis.Client { return n.rdb }

func (n *Notifier) Enabled() bool { return n != nil && n.rdb != nil }

func channel(gameID string) string { return "game:" + gameID }

// Publish announces that the game's shared record changed.
func (n *Notifier) Publish(ctx context.Context, gameID string) {
	if !n.Enabled() {
		return
	}
	if err := n.rdb.Publish(ctx, channel(gameID), "changed").Err(); err != nil {
		logger.Debug("notify publish failed", "game_id", gameID, "error", err)
	}
}

// Subscribe returns a channel that receives a tick whenever the game's
// record changes, plus a cancel func. A nil channel is returned when the
// notifier is disabled; callers must keep polling either way.
func (n *Notifier) Subscribe(ctx context.Context, gameID string) (<-chan struct{}, func()) {
	if !n.Enabled() {
		return nil, func() {}
	}

	sub := n.rdb.Subscribe(ctx, channel(gameID))
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			default: // a pending tick already covers this change
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
