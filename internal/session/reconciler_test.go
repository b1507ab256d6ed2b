package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samoradeng/flaggy/internal/domain"
)

func playingState(clock clockwork.Clock, index, total int) *domain.GameState {
	start := clock.Now()
	flags := make([]domain.Round, total)
	for i := range flags {
		flags[i] = domain.Round{Code: "xx", Name: "Country"}
	}
	return &domain.GameState{
		Game: domain.GameRecord{
			GameID:         "TEST01",
			Status:         domain.StatusPlaying,
			CurrentFlag:    index,
			TotalFlags:     total,
			RoundStartTime: &start,
			RoundDuration:  10000,
			Flags:          flags,
		},
	}
}

func TestObserveRendersRoundZeroOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rc := NewReconciler(fc)
	state := playingState(fc, 0, 3)

	fx := rc.Observe(state)
	if fx.NewRound == nil || fx.NewRound.Index != 0 {
		t.Fatalf("first observation must render round 0, got %+v", fx.NewRound)
	}

	// the same index observed again must not re-render
	fx = rc.Observe(state)
	if fx.NewRound != nil {
		t.Fatalf("repeat observation re-rendered round %d", fx.NewRound.Index)
	}
}

func TestObserveRoundProgression(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rc := NewReconciler(fc)

	rc.Observe(playingState(fc, 0, 3))
	fx := rc.Observe(playingState(fc, 1, 3))
	if fx.NewRound == nil || fx.NewRound.Index != 1 {
		t.Fatalf("expected transition to round 1, got %+v", fx.NewRound)
	}
}

func TestObserveFinalizesOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rc := NewReconciler(fc)

	state := playingState(fc, 2, 3)
	state.Game.Status = domain.StatusFinished
	state.Players = []domain.PlayerRecord{{PlayerID: "a", Score: 2}}

	fx := rc.Observe(state)
	if !fx.Finished || fx.Finalize == nil {
		t.Fatal("finished snapshot must finalize")
	}

	fx = rc.Observe(state)
	if !fx.Finished {
		t.Fatal("finished flag must persist")
	}
	if fx.Finalize != nil {
		t.Fatal("finalize must fire exactly once")
	}
	if !rc.Finalized() {
		t.Fatal("Finalized() should report true")
	}
}

func TestObserveOutOfRangeIndexTreatedAsFinished(t *testing.T) {
	// the index write can land before the status write; an index past the
	// last round must finalize instead of rendering a missing round
	fc := clockwork.NewFakeClock()
	rc := NewReconciler(fc)

	rc.Observe(playingState(fc, 8, 10))
	fx := rc.Observe(playingState(fc, 10, 10))
	if fx.NewRound != nil {
		t.Fatalf("rendered past the end: %+v", fx.NewRound)
	}
	if !fx.Finished || fx.Finalize == nil {
		t.Fatal("out-of-range index must finalize")
	}
}

func TestObserveCountdown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rc := NewReconciler(fc)
	state := playingState(fc, 0, 3)

	fc.Advance(4 * time.Second)
	fx := rc.Observe(state)
	if fx.Remaining != 6*time.Second {
		t.Fatalf("remaining = %v; want 6s", fx.Remaining)
	}

	fc.Advance(10 * time.Second)
	fx = rc.Observe(state)
	if fx.Remaining != 0 {
		t.Fatalf("remaining after expiry = %v; want 0", fx.Remaining)
	}
}
