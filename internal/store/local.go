package store

import (
	"context"
	"sync"
	"time"

	"github.com/samoradeng/flaggy/internal/domain"
)

// LocalStore is the single-device fallback medium: plain maps behind a
// mutex. Games created here are invisible to the networked medium and
// vice versa.
type LocalStore struct {
	mu      sync.RWMutex
	games   map[string]*domain.GameRecord
	players map[string]map[string]*domain.PlayerRecord // gameID -> playerID
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		games:   make(map[string]*domain.GameRecord),
		players: make(map[string]map[string]*domain.PlayerRecord),
	}
}

func (s *LocalStore) Name() string { return "local" }

func (s *LocalStore) CreateGame(ctx context.Context, game *domain.GameRecord, host *domain.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := copyGame(game)
	s.games[g.GameID] = g
	s.players[g.GameID] = map[string]*domain.PlayerRecord{
		host.PlayerID: copyPlayer(host),
	}
	return nil
}

func (s *LocalStore) GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return copyGame(g), nil
}

func (s *LocalStore) GetState(ctx context.Context, gameID string) (*domain.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, domain.ErrGameNotFound
	}

	state := &domain.GameState{Game: *copyGame(g)}
	for _, p := range s.players[gameID] {
		state.Players = append(state.Players, *copyPlayer(p))
	}
	return state, nil
}

func (s *LocalStore) StartGame(ctx context.Context, gameID, hostID string, flags []domain.Round, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if g.HostID != hostID || g.Status != domain.StatusWaiting {
		// idempotent: a repeated start on a playing game is a no-op
		if g.HostID == hostID && g.Status == domain.StatusPlaying {
			return nil
		}
		return domain.ErrInvalidState
	}

	g.Status = domain.StatusPlaying
	g.Flags = append([]domain.Round(nil), flags...)
	g.TotalFlags = len(flags)
	g.CurrentFlag = 0
	t := startedAt
	g.RoundStartTime = &t
	return nil
}

func (s *LocalStore) AdvanceRound(ctx context.Context, req AdvanceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[req.GameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if g.HostID != req.HostID {
		return domain.ErrInvalidState
	}
	if g.Status != domain.StatusPlaying {
		// already finished: retrying the same target state is a no-op
		return nil
	}

	if req.Finish {
		g.Status = domain.StatusFinished
		g.RoundStartTime = nil
		return nil
	}
	if req.NextIndex <= g.CurrentFlag {
		// stale or duplicate advance; the index never regresses
		return nil
	}
	g.CurrentFlag = req.NextIndex
	t := req.StartedAt
	g.RoundStartTime = &t
	return nil
}

func (s *LocalStore) DeleteGame(ctx context.Context, gameID, hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil
	}
	if g.HostID != hostID {
		return domain.ErrInvalidState
	}
	delete(s.games, gameID)
	delete(s.players, gameID)
	return nil
}

func (s *LocalStore) AddPlayer(ctx context.Context, p *domain.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[p.GameID]; !ok {
		return domain.ErrGameNotFound
	}
	if s.players[p.GameID] == nil {
		s.players[p.GameID] = make(map[string]*domain.PlayerRecord)
	}
	s.players[p.GameID][p.PlayerID] = copyPlayer(p)
	return nil
}

func (s *LocalStore) RecordAnswer(ctx context.Context, gameID, playerID string, roundIndex int, ans domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[gameID][playerID]
	if !ok {
		return domain.ErrMissingPlayer
	}
	prev := p.AnswerAt(roundIndex)
	p.SetAnswer(roundIndex, ans)
	if ans.Correct && (prev == nil || !prev.Correct) {
		p.Score++
	}
	return nil
}

func (s *LocalStore) SetConnected(ctx context.Context, gameID, playerID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[gameID][playerID]
	if !ok {
		return domain.ErrMissingPlayer
	}
	p.Connected = connected
	return nil
}

func copyGame(g *domain.GameRecord) *domain.GameRecord {
	out := *g
	if g.RoundStartTime != nil {
		t := *g.RoundStartTime
		out.RoundStartTime = &t
	}
	out.Flags = append([]domain.Round(nil), g.Flags...)
	return &out
}

func copyPlayer(p *domain.PlayerRecord) *domain.PlayerRecord {
	out := *p
	out.Answers = make([]*domain.Answer, len(p.Answers))
	for i, a := range p.Answers {
		if a != nil {
			ans := *a
			out.Answers[i] = &ans
		}
	}
	return &out
}
