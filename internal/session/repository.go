// Package session implements the multiplayer coordination protocol: the
// repository over the active store medium, the host-only round arbitrator,
// the per-client state reconciler and the scoring/ranking rule.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/logger"
	"github.com/samoradeng/flaggy/internal/store"
)

const (
	gameCodeLength   = 6
	gameCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GameCode generates a fresh shareable game id. No collision retry: the
// code space makes collisions negligible.
func GameCode() string {
	var b strings.Builder
	for i := 0; i < gameCodeLength; i++ {
		b.WriteByte(gameCodeAlphabet[rand.Intn(len(gameCodeAlphabet))])
	}
	return b.String()
}

// Repository runs game/player operations against whichever medium is
// active. It starts on the networked store when one is configured; the
// first failed networked call is retried in full against the local
// fallback and the repository pins itself there for the rest of the
// session. The two media never merge.
type Repository struct {
	mu       sync.Mutex
	active   store.Store
	fallback store.Store
	pinned   bool
}

// NewRepository builds a repository over a networked store (may be nil)
// and a local fallback. With no networked store it starts pinned to the
// fallback.
func NewRepository(networked, fallback store.Store) *Repository {
	r := &Repository{active: networked, fallback: fallback}
	if networked == nil {
		r.active = fallback
		r.pinned = true
	}
	return r
}

// ActiveStore names the medium the session is currently pinned to.
func (r *Repository) ActiveStore() string {
	return r.current().Name()
}

func (r *Repository) current() store.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Repository) onFallback() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active == r.fallback
}

func (r *Repository) pinFallback(cause error) store.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != r.fallback {
		logger.Warn("networked store failed; pinning session to local fallback", "error", cause)
		StoreFallbacks.Inc()
		r.active = r.fallback
		r.pinned = true
	}
	return r.active
}

// protocolErr reports errors that are answers, not outages: they pass
// through without triggering the fallback retry.
func protocolErr(err error) bool {
	return errors.Is(err, domain.ErrGameNotFound) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrMissingPlayer)
}

// do runs op against the active store, retrying exactly once against the
// local fallback when the networked store throws, then pinning there.
func (r *Repository) do(op func(store.Store) error) error {
	st := r.current()
	err := op(st)
	if err == nil || protocolErr(err) {
		return err
	}
	if st == r.fallback {
		return fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	fb := r.pinFallback(err)
	err = op(fb)
	if err != nil && !protocolErr(err) {
		return fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	return err
}

func placeholderNickname(playerID string) string {
	tail := playerID
	if len(tail) > 4 {
		tail = tail[:4]
	}
	return "Player-" + strings.ToUpper(tail)
}

// CreateGame writes a fresh waiting game record and the host's player
// record, returning the shareable game id and the host's player id.
func (r *Repository) CreateGame(ctx context.Context, totalFlags int, continent, hostNickname string, roundDuration time.Duration) (string, string, error) {
	if totalFlags <= 0 {
		return "", "", domain.ErrInvalidState
	}

	gameID := GameCode()
	playerID := uuid.NewString()
	if hostNickname == "" {
		hostNickname = placeholderNickname(playerID)
	}
	now := time.Now().UTC()

	game := &domain.GameRecord{
		GameID:        gameID,
		Status:        domain.StatusWaiting,
		TotalFlags:    totalFlags,
		RoundDuration: roundDuration.Milliseconds(),
		Continent:     continent,
		HostID:        playerID,
		CreatedAt:     now,
	}
	host := &domain.PlayerRecord{
		GameID:    gameID,
		PlayerID:  playerID,
		Nickname:  hostNickname,
		IsHost:    true,
		Connected: true,
		JoinedAt:  now,
	}

	err := r.do(func(st store.Store) error {
		return st.CreateGame(ctx, game, host)
	})
	if err != nil {
		return "", "", err
	}
	return gameID, playerID, nil
}

// JoinGame inserts a player into an existing game and returns the merged
// view. A finished game is returned as-is with an empty player id so the
// caller can render a late-joiner results view. When the id is absent
// from the networked store the local medium is checked too; absent from
// both means ErrGameNotFound.
func (r *Repository) JoinGame(ctx context.Context, gameID, nickname string) (string, *domain.GameState, error) {
	st := r.current()
	game, err := st.GetGame(ctx, gameID)
	if err != nil && !protocolErr(err) {
		st = r.pinFallback(err)
		game, err = st.GetGame(ctx, gameID)
	}
	if errors.Is(err, domain.ErrGameNotFound) && st != r.fallback {
		// the game may live on the single-device medium; if so, this
		// session plays there from now on
		if g, ferr := r.fallback.GetGame(ctx, gameID); ferr == nil {
			st = r.pinFallback(errors.New("game found on local medium only"))
			game, err = g, nil
		}
	}
	if err != nil {
		if protocolErr(err) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}

	if game.Status == domain.StatusFinished {
		state, serr := st.GetState(ctx, gameID)
		if serr != nil {
			return "", nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, serr)
		}
		return "", state, nil
	}

	playerID := uuid.NewString()
	if nickname == "" {
		nickname = placeholderNickname(playerID)
	}
	p := &domain.PlayerRecord{
		GameID:    gameID,
		PlayerID:  playerID,
		Nickname:  nickname,
		Connected: true,
		JoinedAt:  time.Now().UTC(),
	}
	if err := st.AddPlayer(ctx, p); err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}

	state, err := st.GetState(ctx, gameID)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	return playerID, state, nil
}

// FetchState returns the merged game + players view. Callers treat an
// error as "skip this poll"; nothing is rendered from a failed fetch.
func (r *Repository) FetchState(ctx context.Context, gameID string) (*domain.GameState, error) {
	var state *domain.GameState
	err := r.do(func(st store.Store) error {
		var err error
		state, err = st.GetState(ctx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// StartGame fixes the round list and stamps round zero. Host-only.
func (r *Repository) StartGame(ctx context.Context, gameID, hostID string, flags []domain.Round, startedAt time.Time) error {
	return r.do(func(st store.Store) error {
		return st.StartGame(ctx, gameID, hostID, flags, startedAt)
	})
}

// AdvanceRound applies a host round-advance or finish write.
func (r *Repository) AdvanceRound(ctx context.Context, req store.AdvanceRequest) error {
	return r.do(func(st store.Store) error {
		return st.AdvanceRound(ctx, req)
	})
}

// SubmitAnswer records one answer for the calling player's own record.
func (r *Repository) SubmitAnswer(ctx context.Context, gameID, playerID string, roundIndex int, value string, correct bool, elapsedMs int64) error {
	ans := domain.Answer{
		Value:      value,
		Correct:    correct,
		TimeMs:     elapsedMs,
		AnsweredAt: time.Now().UTC(),
	}
	return r.do(func(st store.Store) error {
		return st.RecordAnswer(ctx, gameID, playerID, roundIndex, ans)
	})
}

// SetConnected flips the calling player's liveness flag.
func (r *Repository) SetConnected(ctx context.Context, gameID, playerID string, connected bool) error {
	return r.do(func(st store.Store) error {
		return st.SetConnected(ctx, gameID, playerID, connected)
	})
}

// DeleteGame garbage-collects a finished game. Only the local medium is
// cleaned up; networked records stay readable for late joiners.
func (r *Repository) DeleteGame(ctx context.Context, gameID, hostID string) error {
	if !r.onFallback() {
		return nil
	}
	return r.fallback.DeleteGame(ctx, gameID, hostID)
}
