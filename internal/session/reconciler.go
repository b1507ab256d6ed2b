package session

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samoradeng/flaggy/internal/domain"
)

// RoundChange asks the UI to render a new round and reset per-round
// state (enable inputs, clear feedback).
type RoundChange struct {
	Index     int
	Round     domain.Round
	Remaining time.Duration
}

// Effects is what one observed snapshot asks the UI to do. NewRound and
// Finalize fire at most once per index / per game; Remaining and Players
// refresh on every tick and are harmless to repeat.
type Effects struct {
	NewRound  *RoundChange
	Finalize  []Standing // non-nil exactly once, when the game finishes
	Finished  bool
	Remaining time.Duration
	Players   []domain.PlayerRecord
	Connected int
}

// Reconciler converts fetched shared-state snapshots into local UI
// transitions. Every client runs one, host included. It only compares the
// snapshot against what it last observed; it never writes to the store.
type Reconciler struct {
	clock clockwork.Clock

	lastObserved int // -1 so round zero forces the first render
	finalized    bool
}

func NewReconciler(clock clockwork.Clock) *Reconciler {
	return &Reconciler{clock: clock, lastObserved: -1}
}

// Finalized reports whether the finish transition already fired.
func (rc *Reconciler) Finalized() bool { return rc.finalized }

// Observe diffs a fetched snapshot against the locally remembered round
// index and status and returns the transitions to apply. Feeding the same
// finished snapshot twice finalizes only once; feeding the same round
// index twice renders the round only once.
func (rc *Reconciler) Observe(state *domain.GameState) Effects {
	g := &state.Game
	fx := Effects{
		Remaining: g.Remaining(rc.clock.Now()),
		Players:   state.Players,
		Connected: state.ConnectedCount(),
	}

	if g.Status == domain.StatusFinished {
		rc.finalize(state, &fx)
		return fx
	}

	if g.Status == domain.StatusPlaying && g.CurrentFlag != rc.lastObserved {
		rc.lastObserved = g.CurrentFlag
		if g.CurrentFlag >= g.TotalFlags || g.CurrentFlag >= len(g.Flags) {
			// the index write can land before the status write; treat an
			// out-of-range index as finished rather than rendering past the end
			rc.finalize(state, &fx)
			return fx
		}
		fx.NewRound = &RoundChange{
			Index:     g.CurrentFlag,
			Round:     g.Flags[g.CurrentFlag],
			Remaining: fx.Remaining,
		}
	}

	return fx
}

func (rc *Reconciler) finalize(state *domain.GameState, fx *Effects) {
	fx.Finished = true
	if rc.finalized {
		return
	}
	rc.finalized = true
	fx.Finalize = Rank(state.Players)
}
