// Package store holds the coordination media a game session can run on:
// a networked multi-writer Postgres table or a single-device in-memory
// fallback. Both behave identically from the session layer's point of view.
package store

import (
	"context"
	"time"

	"github.com/samoradeng/flaggy/internal/domain"
)

// AdvanceRequest is a host-only conditional write moving the shared game
// forward. With Finish set it marks the game finished and clears the round
// clock; otherwise it bumps current_flag to NextIndex and restamps the
// round clock. Stores apply it only when the game is playing, the host id
// matches and the index actually moves forward, so retrying the same
// target state is a no-op.
type AdvanceRequest struct {
	GameID    string
	HostID    string
	NextIndex int
	Finish    bool
	StartedAt time.Time
}

// Store is one coordination medium. A repository picks one per session and
// never merges histories across media.
type Store interface {
	// Name identifies the medium in logs and health checks.
	Name() string

	// CreateGame inserts a waiting game record plus the host's player record.
	CreateGame(ctx context.Context, game *domain.GameRecord, host *domain.PlayerRecord) error

	// GetGame returns the bare game record, domain.ErrGameNotFound if absent.
	GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error)

	// GetState returns the merged game + players view.
	GetState(ctx context.Context, gameID string) (*domain.GameState, error)

	// StartGame moves a waiting game to playing: fixes the round list and
	// stamps round zero. Host-only, conditional on status=waiting.
	StartGame(ctx context.Context, gameID, hostID string, flags []domain.Round, startedAt time.Time) error

	// AdvanceRound applies a host round-advance or finish write.
	AdvanceRound(ctx context.Context, req AdvanceRequest) error

	// DeleteGame removes the game and its players. Host-only cleanup.
	DeleteGame(ctx context.Context, gameID, hostID string) error

	// AddPlayer inserts a joining player's record.
	AddPlayer(ctx context.Context, p *domain.PlayerRecord) error

	// RecordAnswer writes one answer into the player's sparse answer log
	// and bumps the score by one when correct. Same-round resubmission is
	// last write wins and does not double-count the score.
	RecordAnswer(ctx context.Context, gameID, playerID string, roundIndex int, ans domain.Answer) error

	// SetConnected flips the player's liveness flag.
	SetConnected(ctx context.Context, gameID, playerID string, connected bool) error
}
