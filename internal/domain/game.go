package domain

import "time"

// GameStatus - lifecycle state of a shared game record.
// Monotonic: waiting -> playing -> finished, never backwards.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusPlaying  GameStatus = "playing"
	StatusFinished GameStatus = "finished"
)

// Round is one quiz item: a flag to identify, with shuffled options.
type Round struct {
	Code    string   `json:"code"` // ISO 3166-1 alpha-2, lowercase
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// GameRecord is the shared record all clients coordinate through.
// Round-advance fields (Status, CurrentFlag, RoundStartTime, Flags) are
// written only by the host's client; everyone else reads.
type GameRecord struct {
	GameID         string     `json:"game_id"`
	Status         GameStatus `json:"status"`
	CurrentFlag    int        `json:"current_flag"`
	TotalFlags     int        `json:"total_flags"`
	RoundStartTime *time.Time `json:"round_start_time,omitempty"`
	RoundDuration  int64      `json:"round_duration"` // milliseconds, uniform per round
	Continent      string     `json:"continent,omitempty"`
	HostID         string     `json:"host_id"`
	Flags          []Round    `json:"flags,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Duration returns the per-round answer window.
func (g *GameRecord) Duration() time.Duration {
	return time.Duration(g.RoundDuration) * time.Millisecond
}

// Remaining returns the time left in the current round as of now.
// Zero when the game is not playing or the round clock has not been set.
// The store's RoundStartTime is authoritative, never the local wall clock.
func (g *GameRecord) Remaining(now time.Time) time.Duration {
	if g.Status != StatusPlaying || g.RoundStartTime == nil {
		return 0
	}
	left := g.Duration() - now.Sub(*g.RoundStartTime)
	if left < 0 {
		return 0
	}
	return left
}

// Answer is one player's submission for one round.
type Answer struct {
	Value      string    `json:"value"`
	Correct    bool      `json:"correct"`
	TimeMs     int64     `json:"time_ms"`
	AnsweredAt time.Time `json:"answered_at"`
}

// PlayerRecord is one joined player's shared record. Only the owning
// player's client writes it; all clients in the game read it.
type PlayerRecord struct {
	GameID    string    `json:"game_id"`
	PlayerID  string    `json:"player_id"`
	Nickname  string    `json:"nickname"`
	IsHost    bool      `json:"is_host"`
	Score     int       `json:"score"`
	Answers   []*Answer `json:"answers"` // indexed by round, nil = not submitted
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joined_at"`
}

// SetAnswer records an answer at the given round index, growing the
// sparse answers slice as needed. Last write wins for a repeated index.
func (p *PlayerRecord) SetAnswer(roundIndex int, a Answer) {
	if roundIndex < 0 {
		return
	}
	for len(p.Answers) <= roundIndex {
		p.Answers = append(p.Answers, nil)
	}
	ans := a
	p.Answers[roundIndex] = &ans
}

// AnswerAt returns the answer for a round, or nil if not submitted.
func (p *PlayerRecord) AnswerAt(roundIndex int) *Answer {
	if roundIndex < 0 || roundIndex >= len(p.Answers) {
		return nil
	}
	return p.Answers[roundIndex]
}

// TotalTimeMs is the cumulative answer time, the ranking tiebreaker.
func (p *PlayerRecord) TotalTimeMs() int64 {
	var total int64
	for _, a := range p.Answers {
		if a != nil {
			total += a.TimeMs
		}
	}
	return total
}

// GameState is the merged game + players view one fetch returns.
type GameState struct {
	Game    GameRecord     `json:"game"`
	Players []PlayerRecord `json:"players"`
}

// Player looks up a player by id in the fetched set.
func (s *GameState) Player(playerID string) *PlayerRecord {
	for i := range s.Players {
		if s.Players[i].PlayerID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}

// ConnectedCount returns how many fetched players are marked connected.
func (s *GameState) ConnectedCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].Connected {
			n++
		}
	}
	return n
}
