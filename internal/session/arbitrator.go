package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/logger"
	"github.com/samoradeng/flaggy/internal/store"
)

// advancer is the single store operation the arbitrator needs.
type advancer interface {
	AdvanceRound(ctx context.Context, req store.AdvanceRequest) error
}

type arbState int

const (
	arbIdle arbState = iota
	arbAdvancing
)

// Arbitrator decides, on the host client only, when the shared round
// turns over. Timer ticks may fire in bursts and overlap with polls; the
// single-flight state plus the minimum-interval guard bound the result to
// one successful advance per round even though the write path is not
// transactional.
type Arbitrator struct {
	repo        advancer
	clock       clockwork.Clock
	gameID      string
	hostID      string
	minInterval time.Duration

	mu            sync.Mutex
	state         arbState
	lastAdvanceAt time.Time
}

func NewArbitrator(repo advancer, clock clockwork.Clock, gameID, hostID string, minInterval time.Duration) *Arbitrator {
	return &Arbitrator{
		repo:        repo,
		clock:       clock,
		gameID:      gameID,
		hostID:      hostID,
		minInterval: minInterval,
	}
}

// ShouldAdvance reports whether the active round has expired and no
// advance is in flight or too recent. The store's RoundStartTime is
// authoritative; local elapsed time is never trusted over it.
func (a *Arbitrator) ShouldAdvance(g *domain.GameRecord) bool {
	if g.Status != domain.StatusPlaying || g.RoundStartTime == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != arbIdle {
		return false
	}
	now := a.clock.Now()
	if !a.lastAdvanceAt.IsZero() && now.Sub(a.lastAdvanceAt) < a.minInterval {
		return false
	}
	return now.Sub(*g.RoundStartTime) >= g.Duration()
}

// Advance moves the shared record to the next round, or to finished when
// the last round just expired. A call while another advance is in flight,
// or within the minimum interval of the previous one, is a no-op. The
// write itself is not retried on failure: the elapsed-time check stays
// true, so a missed advance self-heals on the next tick.
func (a *Arbitrator) Advance(ctx context.Context, g *domain.GameRecord) (bool, error) {
	a.mu.Lock()
	if a.state != arbIdle {
		a.mu.Unlock()
		return false, nil
	}
	now := a.clock.Now()
	// re-check after acquiring: a burst of ticks can all pass ShouldAdvance
	if !a.lastAdvanceAt.IsZero() && now.Sub(a.lastAdvanceAt) < a.minInterval {
		a.mu.Unlock()
		return false, nil
	}
	a.state = arbAdvancing
	a.lastAdvanceAt = now
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.state = arbIdle
		a.mu.Unlock()
	}()

	req := NextAdvance(g, a.hostID, now)

	if err := a.repo.AdvanceRound(ctx, req); err != nil {
		logger.Warn("round advance write failed; will retry on next expiry",
			"game_id", a.gameID, "next_index", req.NextIndex, "error", err)
		return false, err
	}

	RoundAdvances.Inc()
	if req.Finish {
		logger.Info("game finished", "game_id", a.gameID, "total_flags", g.TotalFlags)
	} else {
		logger.Debug("round advanced", "game_id", a.gameID, "index", req.NextIndex)
	}
	return true, nil
}

// NextAdvance builds the write that moves g one round forward: the next
// index, or a finish when the last round just expired.
func NextAdvance(g *domain.GameRecord, hostID string, now time.Time) store.AdvanceRequest {
	req := store.AdvanceRequest{
		GameID:    g.GameID,
		HostID:    hostID,
		NextIndex: g.CurrentFlag + 1,
	}
	if req.NextIndex >= g.TotalFlags {
		req.Finish = true
	} else {
		req.StartedAt = now
	}
	return req
}
