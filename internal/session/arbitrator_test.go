package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/store"
)

// countingAdvancer records every advance write it receives.
type countingAdvancer struct {
	mu   sync.Mutex
	reqs []store.AdvanceRequest
	fail int // fail the next n calls
}

func (a *countingAdvancer) AdvanceRound(_ context.Context, req store.AdvanceRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail > 0 {
		a.fail--
		return errors.New("write failed")
	}
	a.reqs = append(a.reqs, req)
	return nil
}

func (a *countingAdvancer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.reqs)
}

func expiredGame(clock clockwork.Clock, index, total int) *domain.GameRecord {
	start := clock.Now().Add(-11 * time.Second)
	return &domain.GameRecord{
		GameID:         "ARB001",
		Status:         domain.StatusPlaying,
		CurrentFlag:    index,
		TotalFlags:     total,
		RoundStartTime: &start,
		RoundDuration:  10000,
		HostID:         "host",
	}
}

func TestShouldAdvanceOnlyAfterExpiry(t *testing.T) {
	fc := clockwork.NewFakeClock()
	arb := NewArbitrator(&countingAdvancer{}, fc, "ARB001", "host", 3*time.Second)

	start := fc.Now()
	g := &domain.GameRecord{
		Status:         domain.StatusPlaying,
		RoundStartTime: &start,
		RoundDuration:  10000,
		TotalFlags:     3,
	}

	if arb.ShouldAdvance(g) {
		t.Fatal("round not expired yet")
	}
	fc.Advance(10 * time.Second)
	if !arb.ShouldAdvance(g) {
		t.Fatal("expired round should advance")
	}

	g.Status = domain.StatusWaiting
	if arb.ShouldAdvance(g) {
		t.Fatal("waiting game must never advance")
	}
	g.Status = domain.StatusPlaying
	g.RoundStartTime = nil
	if arb.ShouldAdvance(g) {
		t.Fatal("missing round clock must never advance")
	}
}

func TestAdvanceBurstWritesOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	adv := &countingAdvancer{}
	arb := NewArbitrator(adv, fc, "ARB001", "host", 3*time.Second)
	g := expiredGame(fc, 0, 3)

	// a burst of timer ticks can all see the round expired; only the
	// first may write
	for i := 0; i < 5; i++ {
		arb.Advance(context.Background(), g)
	}
	if adv.count() != 1 {
		t.Fatalf("burst produced %d writes; want 1", adv.count())
	}
	if adv.reqs[0].NextIndex != 1 || adv.reqs[0].Finish {
		t.Fatalf("unexpected request %+v", adv.reqs[0])
	}
}

func TestAdvanceConcurrentCallersWriteOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	adv := &countingAdvancer{}
	arb := NewArbitrator(adv, fc, "ARB001", "host", 3*time.Second)
	g := expiredGame(fc, 1, 5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arb.Advance(context.Background(), g)
		}()
	}
	wg.Wait()

	if adv.count() != 1 {
		t.Fatalf("concurrent advances produced %d writes; want 1", adv.count())
	}
}

func TestAdvanceRespectsMinimumInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	adv := &countingAdvancer{}
	arb := NewArbitrator(adv, fc, "ARB001", "host", 3*time.Second)

	arb.Advance(context.Background(), expiredGame(fc, 0, 5))
	fc.Advance(2 * time.Second)
	arb.Advance(context.Background(), expiredGame(fc, 1, 5))
	if adv.count() != 1 {
		t.Fatalf("advance inside the minimum interval wrote; count = %d", adv.count())
	}

	fc.Advance(1 * time.Second)
	arb.Advance(context.Background(), expiredGame(fc, 1, 5))
	if adv.count() != 2 {
		t.Fatalf("advance after the interval should write; count = %d", adv.count())
	}
}

func TestAdvanceFinishesOnLastRound(t *testing.T) {
	fc := clockwork.NewFakeClock()
	adv := &countingAdvancer{}
	arb := NewArbitrator(adv, fc, "ARB001", "host", 3*time.Second)

	// round 9 of 10 expiring must finish, not move to index 10
	arb.Advance(context.Background(), expiredGame(fc, 9, 10))

	if adv.count() != 1 {
		t.Fatalf("want one write, got %d", adv.count())
	}
	req := adv.reqs[0]
	if !req.Finish {
		t.Fatalf("last round must finish the game, got %+v", req)
	}
}

func TestAdvanceWriteFailureSelfHeals(t *testing.T) {
	fc := clockwork.NewFakeClock()
	adv := &countingAdvancer{fail: 1}
	arb := NewArbitrator(adv, fc, "ARB001", "host", 3*time.Second)

	ok, err := arb.Advance(context.Background(), expiredGame(fc, 0, 5))
	if ok || err == nil {
		t.Fatal("failed write must report the error")
	}

	// the attempt still counts against the interval; once it passes, the
	// still-expired round advances on the retry
	fc.Advance(2 * time.Second)
	if ok, _ := arb.Advance(context.Background(), expiredGame(fc, 0, 5)); ok {
		t.Fatal("retry inside the interval must be a no-op")
	}
	fc.Advance(1 * time.Second)
	ok, err = arb.Advance(context.Background(), expiredGame(fc, 0, 5))
	if !ok || err != nil {
		t.Fatalf("retry after the interval should succeed, ok=%v err=%v", ok, err)
	}
	if adv.count() != 1 {
		t.Fatalf("want exactly one successful write, got %d", adv.count())
	}
}

func TestNextAdvanceBoundary(t *testing.T) {
	now := time.Now()
	g := &domain.GameRecord{GameID: "G", CurrentFlag: 3, TotalFlags: 10}

	req := NextAdvance(g, "host", now)
	if req.Finish || req.NextIndex != 4 || !req.StartedAt.Equal(now) {
		t.Fatalf("mid-game advance wrong: %+v", req)
	}

	g.CurrentFlag = 9
	req = NextAdvance(g, "host", now)
	if !req.Finish || req.NextIndex != 10 {
		t.Fatalf("final advance wrong: %+v", req)
	}
}
