package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samoradeng/flaggy/internal/domain"
)

// PostgresStore is the networked coordination medium: a hosted relational
// table reachable by every client in the game.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) CreateGame(ctx context.Context, game *domain.GameRecord, host *domain.PlayerRecord) error {
	flagsJSON, err := json.Marshal(game.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin create game: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO multiplayer_games
		   (game_id, status, current_flag, total_flags, round_start_time, round_duration, continent, host_id, flags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		game.GameID, game.Status, game.CurrentFlag, game.TotalFlags,
		game.RoundStartTime, game.RoundDuration, game.Continent, game.HostID,
		flagsJSON, game.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	if err := insertPlayer(ctx, tx, host); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit create game: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGame(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT game_id, status, current_flag, total_flags, round_start_time, round_duration, continent, host_id, flags, created_at
		 FROM multiplayer_games WHERE game_id = $1`,
		gameID,
	)
	return scanGame(row)
}

func (s *PostgresStore) GetState(ctx context.Context, gameID string) (*domain.GameState, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT game_id, player_id, nickname, is_host, score, answers, connected, joined_at
		 FROM multiplayer_players WHERE game_id = $1 ORDER BY joined_at`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	state := &domain.GameState{Game: *game}
	for rows.Next() {
		var (
			p           domain.PlayerRecord
			answersJSON []byte
		)
		if err := rows.Scan(&p.GameID, &p.PlayerID, &p.Nickname, &p.IsHost, &p.Score, &answersJSON, &p.Connected, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		if err := json.Unmarshal(answersJSON, &p.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		state.Players = append(state.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}
	return state, nil
}

func (s *PostgresStore) StartGame(ctx context.Context, gameID, hostID string, flags []domain.Round, startedAt time.Time) error {
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE multiplayer_games
		 SET status = $3, flags = $4, total_flags = $5, current_flag = 0, round_start_time = $6
		 WHERE game_id = $1 AND host_id = $2 AND status = $7`,
		gameID, hostID, domain.StatusPlaying, flagsJSON, len(flags), startedAt, domain.StatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// already playing (repeated start) or wrong host; look to tell apart
		g, err := s.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if g.HostID == hostID && g.Status == domain.StatusPlaying {
			return nil
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) AdvanceRound(ctx context.Context, req AdvanceRequest) error {
	var err error
	if req.Finish {
		_, err = s.db.Exec(ctx,
			`UPDATE multiplayer_games
			 SET status = $3, round_start_time = NULL
			 WHERE game_id = $1 AND host_id = $2 AND status = $4`,
			req.GameID, req.HostID, domain.StatusFinished, domain.StatusPlaying,
		)
	} else {
		_, err = s.db.Exec(ctx,
			`UPDATE multiplayer_games
			 SET current_flag = $3, round_start_time = $4
			 WHERE game_id = $1 AND host_id = $2 AND status = $5 AND current_flag < $3`,
			req.GameID, req.HostID, req.NextIndex, req.StartedAt, domain.StatusPlaying,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to advance round: %w", err)
	}
	// zero affected rows means the target state was already written;
	// retries are a no-op from the caller's perspective
	return nil
}

func (s *PostgresStore) DeleteGame(ctx context.Context, gameID, hostID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM multiplayer_games WHERE game_id = $1 AND host_id = $2`,
		gameID, hostID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddPlayer(ctx context.Context, p *domain.PlayerRecord) error {
	return insertPlayer(ctx, s.db, p)
}

func (s *PostgresStore) RecordAnswer(ctx context.Context, gameID, playerID string, roundIndex int, ans domain.Answer) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin record answer: %w", err)
	}
	defer tx.Rollback(ctx)

	var answersJSON []byte
	err = tx.QueryRow(ctx,
		`SELECT answers FROM multiplayer_players
		 WHERE game_id = $1 AND player_id = $2 FOR UPDATE`,
		gameID, playerID,
	).Scan(&answersJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrMissingPlayer
	}
	if err != nil {
		return fmt.Errorf("failed to read answers: %w", err)
	}

	var p domain.PlayerRecord
	if err := json.Unmarshal(answersJSON, &p.Answers); err != nil {
		return fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	prev := p.AnswerAt(roundIndex)
	p.SetAnswer(roundIndex, ans)

	scoreInc := 0
	if ans.Correct && (prev == nil || !prev.Correct) {
		scoreInc = 1
	}

	updated, err := json.Marshal(p.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE multiplayer_players SET answers = $3, score = score + $4
		 WHERE game_id = $1 AND player_id = $2`,
		gameID, playerID, updated, scoreInc,
	)
	if err != nil {
		return fmt.Errorf("failed to update answers: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit record answer: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetConnected(ctx context.Context, gameID, playerID string, connected bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE multiplayer_players SET connected = $3
		 WHERE game_id = $1 AND player_id = $2`,
		gameID, playerID, connected,
	)
	if err != nil {
		return fmt.Errorf("failed to set connected: %w", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertPlayer(ctx context.Context, db execer, p *domain.PlayerRecord) error {
	answersJSON, err := json.Marshal(p.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	if p.Answers == nil {
		answersJSON = []byte("[]")
	}
	_, err = db.Exec(ctx,
		`INSERT INTO multiplayer_players
		   (game_id, player_id, nickname, is_host, score, answers, connected, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.GameID, p.PlayerID, p.Nickname, p.IsHost, p.Score, answersJSON, p.Connected, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func scanGame(row pgx.Row) (*domain.GameRecord, error) {
	var (
		g         domain.GameRecord
		flagsJSON []byte
	)
	err := row.Scan(&g.GameID, &g.Status, &g.CurrentFlag, &g.TotalFlags,
		&g.RoundStartTime, &g.RoundDuration, &g.Continent, &g.HostID,
		&flagsJSON, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	if err := json.Unmarshal(flagsJSON, &g.Flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}
	return &g, nil
}
