package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/logger"
)

// Renderer is the UI contract surface the session drives. ShowRound
// implies resetting per-round state; ShowCountdown and ShowPlayers may
// fire redundantly on every poll.
type Renderer interface {
	ShowRound(index int, round domain.Round, remaining time.Duration)
	ShowCountdown(remaining time.Duration)
	ShowPlayers(players []domain.PlayerRecord, connected int)
	ShowResults(standings []Standing)
}

type nopRenderer struct{}

func (nopRenderer) ShowRound(int, domain.Round, time.Duration) {}
func (nopRenderer) ShowCountdown(time.Duration)                {}
func (nopRenderer) ShowPlayers([]domain.PlayerRecord, int)     {}
func (nopRenderer) ShowResults([]Standing)                     {}

// Result is the no-throw outcome of host-gated operations.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func failure(msg string) Result { return Result{Error: msg} }

var okResult = Result{Success: true}

// Options tune a session; zero values take the reference defaults.
type Options struct {
	PollInterval       time.Duration // default 2s
	MinAdvanceInterval time.Duration // default 3s
	RoundDuration      time.Duration // default 10s, fixed per game at create
	Clock              clockwork.Clock
	Renderer           Renderer
}

const (
	defaultPollInterval       = 2 * time.Second
	defaultMinAdvanceInterval = 3 * time.Second
	defaultRoundDuration      = 10 * time.Second
)

// Session is one client's view of a multiplayer game: it polls the shared
// store, feeds every snapshot to the reconciler and, on the host only, to
// the arbitrator. All coordination with other clients happens through the
// store; there is no client-to-client channel.
type Session struct {
	repo     *Repository
	clock    clockwork.Clock
	renderer Renderer

	pollInterval       time.Duration
	minAdvanceInterval time.Duration
	roundDuration      time.Duration

	mu       sync.Mutex
	gameID   string
	playerID string
	isHost   bool
	arb      *Arbitrator
	rec      *Reconciler
	last     *domain.GameState
	cancel   context.CancelFunc
}

func NewSession(repo *Repository, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MinAdvanceInterval <= 0 {
		opts.MinAdvanceInterval = defaultMinAdvanceInterval
	}
	if opts.RoundDuration <= 0 {
		opts.RoundDuration = defaultRoundDuration
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Renderer == nil {
		opts.Renderer = nopRenderer{}
	}
	return &Session{
		repo:               repo,
		clock:              opts.Clock,
		renderer:           opts.Renderer,
		pollInterval:       opts.PollInterval,
		minAdvanceInterval: opts.MinAdvanceInterval,
		roundDuration:      opts.RoundDuration,
	}
}

func (s *Session) GameID() string   { s.mu.Lock(); defer s.mu.Unlock(); return s.gameID }
func (s *Session) PlayerID() string { s.mu.Lock(); defer s.mu.Unlock(); return s.playerID }
func (s *Session) IsHost() bool     { s.mu.Lock(); defer s.mu.Unlock(); return s.isHost }

// Create makes this session the host of a fresh waiting game.
func (s *Session) Create(ctx context.Context, totalFlags int, continent, nickname string) (string, error) {
	gameID, playerID, err := s.repo.CreateGame(ctx, totalFlags, continent, nickname, s.roundDuration)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.gameID = gameID
	s.playerID = playerID
	s.isHost = true
	s.arb = NewArbitrator(s.repo, s.clock, gameID, playerID, s.minAdvanceInterval)
	s.rec = NewReconciler(s.clock)
	s.mu.Unlock()

	logger.Info("game created", "game_id", gameID, "store", s.repo.ActiveStore())
	return gameID, nil
}

// Join attaches this session to an existing game as a non-host player.
// Joining a finished game succeeds with an empty player id; the returned
// state carries the results for a late-joiner view.
func (s *Session) Join(ctx context.Context, gameID, nickname string) (*domain.GameState, error) {
	playerID, state, err := s.repo.JoinGame(ctx, gameID, nickname)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.gameID = gameID
	s.playerID = playerID
	s.isHost = false
	s.rec = NewReconciler(s.clock)
	s.mu.Unlock()

	logger.Info("game joined", "game_id", gameID, "late", playerID == "")
	return state, nil
}

// Start fixes the round list and begins round zero. Non-host callers get
// back {success:false}; nothing is written.
func (s *Session) Start(ctx context.Context, flags []domain.Round) Result {
	s.mu.Lock()
	gameID, playerID, isHost := s.gameID, s.playerID, s.isHost
	s.mu.Unlock()

	if !isHost {
		return failure("only the host can start the game")
	}
	if len(flags) == 0 {
		return failure("no rounds to play")
	}
	if err := s.repo.StartGame(ctx, gameID, playerID, flags, s.clock.Now().UTC()); err != nil {
		return failure(err.Error())
	}
	return okResult
}

// SubmitAnswer writes this player's answer for a round. The UI disables
// resubmission; if a duplicate slips through, last write wins.
func (s *Session) SubmitAnswer(ctx context.Context, roundIndex int, value string, correct bool, elapsed time.Duration) Result {
	s.mu.Lock()
	gameID, playerID := s.gameID, s.playerID
	s.mu.Unlock()

	if playerID == "" {
		return failure("not an active player in this game")
	}
	if err := s.repo.SubmitAnswer(ctx, gameID, playerID, roundIndex, value, correct, elapsed.Milliseconds()); err != nil {
		return failure(err.Error())
	}
	return okResult
}

// Run polls the store until the context is cancelled or the game
// finishes. It is the only goroutine that mutates the reconciler.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

// Stop cancels the poll loop. Safe to call more than once; a stale timer
// callback after teardown finds the context already cancelled.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// tick is one poll: fetch a snapshot, reconcile, and on the host evaluate
// a round advance. A failed fetch is skipped; the countdown and round
// freeze until the next successful fetch rather than running on local
// guesses.
func (s *Session) tick(ctx context.Context) {
	s.mu.Lock()
	gameID := s.gameID
	rec := s.rec
	s.mu.Unlock()
	if gameID == "" || rec == nil {
		return
	}

	Polls.Inc()
	state, err := s.repo.FetchState(ctx, gameID)
	if err != nil || state == nil {
		PollFailures.Inc()
		logger.Warn("state fetch failed; skipping poll", "game_id", gameID, "error", err)
		return
	}

	s.mu.Lock()
	s.last = state
	arb := s.arb
	isHost := s.isHost
	s.mu.Unlock()

	fx := rec.Observe(state)
	if fx.NewRound != nil {
		s.renderer.ShowRound(fx.NewRound.Index, fx.NewRound.Round, fx.NewRound.Remaining)
	}
	s.renderer.ShowCountdown(fx.Remaining)
	s.renderer.ShowPlayers(fx.Players, fx.Connected)
	if fx.Finalize != nil {
		s.renderer.ShowResults(fx.Finalize)
		s.Stop()
		return
	}

	if isHost && arb != nil && arb.ShouldAdvance(&state.Game) {
		if _, err := arb.Advance(ctx, &state.Game); err != nil {
			// next expired tick retries; nothing else to do here
			return
		}
	}
}

// TimeRemaining reports the countdown from the last good snapshot; it
// freezes when fetches fail rather than fabricating progress.
func (s *Session) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return 0
	}
	return s.last.Game.Remaining(s.clock.Now())
}

// FinalResults ranks the last fetched player set. ErrMissingPlayer means
// no snapshot has arrived yet; with a snapshot present the ranking always
// computes, even if this client's own record has not replicated.
func (s *Session) FinalResults() ([]Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, domain.ErrMissingPlayer
	}
	return Rank(s.last.Players), nil
}

// ShareText renders the results share block for this player.
func (s *Session) ShareText() (string, error) {
	standings, err := s.FinalResults()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	playerID := s.playerID
	total := s.last.Game.TotalFlags
	s.mu.Unlock()
	return GenerateShareText(standings, playerID, total), nil
}

// Leave marks this player disconnected and stops polling. The host
// additionally garbage-collects the record when the session ran on the
// local medium; networked records are left for late joiners.
func (s *Session) Leave(ctx context.Context) {
	s.mu.Lock()
	gameID, playerID, isHost := s.gameID, s.playerID, s.isHost
	s.mu.Unlock()

	s.Stop()
	if playerID == "" {
		return
	}
	if err := s.repo.SetConnected(ctx, gameID, playerID, false); err != nil {
		logger.Debug("disconnect flag write failed", "game_id", gameID, "error", err)
	}
	if isHost {
		if err := s.repo.DeleteGame(ctx, gameID, playerID); err != nil {
			logger.Debug("local cleanup failed", "game_id", gameID, "error", err)
		}
	}
}
