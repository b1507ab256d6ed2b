package session

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/store"
)

// captureRenderer records the UI transitions a session emits.
type captureRenderer struct {
	rounds  []int
	results [][]Standing
}

func (r *captureRenderer) ShowRound(index int, _ domain.Round, _ time.Duration) {
	r.rounds = append(r.rounds, index)
}
func (r *captureRenderer) ShowCountdown(time.Duration)            {}
func (r *captureRenderer) ShowPlayers([]domain.PlayerRecord, int) {}
func (r *captureRenderer) ShowResults(standings []Standing) {
	r.results = append(r.results, standings)
}

func testRounds() []domain.Round {
	return []domain.Round{
		{Code: "fr", Name: "France", Options: []string{"France", "Italy", "Spain", "Poland"}},
		{Code: "jp", Name: "Japan", Options: []string{"Japan", "China", "Korea", "Vietnam"}},
		{Code: "br", Name: "Brazil", Options: []string{"Brazil", "Peru", "Chile", "Cuba"}},
	}
}

func newTestSession(t *testing.T, repo *Repository, fc clockwork.Clock) (*Session, *captureRenderer) {
	t.Helper()
	r := &captureRenderer{}
	return NewSession(repo, Options{
		PollInterval:       2 * time.Second,
		MinAdvanceInterval: 3 * time.Second,
		RoundDuration:      10 * time.Second,
		Clock:              fc,
		Renderer:           r,
	}), r
}

func TestFullThreeRoundGame(t *testing.T) {
	fc := clockwork.NewFakeClock()
	local := store.NewLocalStore()
	ctx := context.Background()

	hostRepo := NewRepository(nil, local)
	host, hostUI := newTestSession(t, hostRepo, fc)
	gameID, err := host.Create(ctx, 3, "", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !host.IsHost() {
		t.Fatal("creator must be host")
	}

	guestRepo := NewRepository(nil, local)
	guest, guestUI := newTestSession(t, guestRepo, fc)
	if _, err := guest.Join(ctx, gameID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if res := guest.Start(ctx, testRounds()); res.Success {
		t.Fatal("non-host start must fail")
	}
	if res := host.Start(ctx, testRounds()); !res.Success {
		t.Fatalf("host start failed: %s", res.Error)
	}

	tickAll := func() { host.tick(ctx); guest.tick(ctx) }

	// round 0 renders on both clients
	tickAll()
	if len(hostUI.rounds) != 1 || hostUI.rounds[0] != 0 {
		t.Fatalf("host rounds = %v; want [0]", hostUI.rounds)
	}
	if len(guestUI.rounds) != 1 {
		t.Fatalf("guest rounds = %v; want [0]", guestUI.rounds)
	}

	// answers: host right and fast, guest right but slower
	if res := host.SubmitAnswer(ctx, 0, "France", true, 2*time.Second); !res.Success {
		t.Fatalf("host answer: %s", res.Error)
	}
	if res := guest.SubmitAnswer(ctx, 0, "France", true, 5*time.Second); !res.Success {
		t.Fatalf("guest answer: %s", res.Error)
	}

	// a mid-round tick changes nothing
	fc.Advance(4 * time.Second)
	tickAll()
	if len(hostUI.rounds) != 1 {
		t.Fatalf("mid-round tick re-rendered: %v", hostUI.rounds)
	}

	// round 0 expires; only the host writes the advance
	fc.Advance(6 * time.Second)
	tickAll() // host arbitrates here
	tickAll() // both observe round 1
	if len(hostUI.rounds) != 2 || hostUI.rounds[1] != 1 {
		t.Fatalf("host rounds = %v; want [0 1]", hostUI.rounds)
	}
	if len(guestUI.rounds) != 2 {
		t.Fatalf("guest rounds = %v; want [0 1]", guestUI.rounds)
	}

	host.SubmitAnswer(ctx, 1, "Japan", true, 1*time.Second)
	guest.SubmitAnswer(ctx, 1, "China", false, 2*time.Second)

	fc.Advance(10 * time.Second)
	tickAll()
	tickAll()
	if len(hostUI.rounds) != 3 {
		t.Fatalf("host rounds = %v; want [0 1 2]", hostUI.rounds)
	}

	guest.SubmitAnswer(ctx, 2, "Brazil", true, 3*time.Second)

	// last round expires; the game finishes instead of advancing past it
	fc.Advance(10 * time.Second)
	tickAll()
	tickAll()
	if len(hostUI.results) != 1 {
		t.Fatalf("host finalized %d times; want 1", len(hostUI.results))
	}
	if len(guestUI.results) != 1 {
		t.Fatalf("guest finalized %d times; want 1", len(guestUI.results))
	}

	// repeated polls after the finish must not re-finalize
	tickAll()
	if len(hostUI.results) != 1 || len(guestUI.results) != 1 {
		t.Fatal("finalize fired more than once")
	}

	standings := hostUI.results[0]
	if len(standings) != 2 {
		t.Fatalf("standings rows = %d; want 2", len(standings))
	}
	if standings[0].Nickname != "Alice" || standings[0].Score != 2 {
		t.Fatalf("winner = %+v; want Alice with 2", standings[0])
	}
	if standings[1].Nickname != "Bob" || standings[1].Score != 2 {
		t.Fatalf("runner-up = %+v; want Bob with 2", standings[1])
	}
	// same score: Alice's 3s total beats Bob's 10s
	if standings[0].Rank != 1 || standings[1].Rank != 2 {
		t.Fatalf("ranks = %d,%d", standings[0].Rank, standings[1].Rank)
	}

	text, err := guest.ShareText()
	if err != nil {
		t.Fatalf("share text: %v", err)
	}
	if text == "" {
		t.Fatal("share text empty")
	}
}

func TestTickSkipsFailedFetch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ctx := context.Background()

	repo := NewRepository(nil, store.NewLocalStore())
	sess, ui := newTestSession(t, repo, fc)
	gameID, err := sess.Create(ctx, 2, "", "Host")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res := sess.Start(ctx, testRounds()[:2]); !res.Success {
		t.Fatalf("start: %s", res.Error)
	}
	sess.tick(ctx)

	// the game disappears under the session; ticks must freeze, not crash
	if err := repo.DeleteGame(ctx, gameID, sess.PlayerID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remBefore := sess.TimeRemaining()
	fc.Advance(2 * time.Second)
	sess.tick(ctx)

	if len(ui.rounds) != 1 {
		t.Fatalf("failed fetch changed rounds: %v", ui.rounds)
	}
	if sess.TimeRemaining() >= remBefore {
		// remaining keeps counting down against the last snapshot
		t.Fatalf("remaining did not move: %v -> %v", remBefore, sess.TimeRemaining())
	}
}

func TestLeaveCleansUpLocalGame(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ctx := context.Background()
	local := store.NewLocalStore()

	repo := NewRepository(nil, local)
	sess, _ := newTestSession(t, repo, fc)
	gameID, err := sess.Create(ctx, 2, "", "Host")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sess.Leave(ctx)

	if _, err := local.GetGame(ctx, gameID); err == nil {
		t.Fatal("host leave must delete the local game record")
	}
}
