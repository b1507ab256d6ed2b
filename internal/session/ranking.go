package session

import (
	"sort"
	"strconv"

	"github.com/samoradeng/flaggy/internal/domain"
)

// Standing is one row of the final ranking.
type Standing struct {
	PlayerID    string `json:"player_id"`
	Nickname    string `json:"nickname"`
	Score       int    `json:"score"`
	TotalTimeMs int64  `json:"total_time_ms"`
	Rank        int    `json:"rank"`
}

// Rank orders players by score descending, then cumulative answer time
// ascending (faster wins), then player id so the order is identical for
// every client regardless of how the fetched set was arranged. Every
// client computes this independently from the same shared player set.
func Rank(players []domain.PlayerRecord) []Standing {
	standings := make([]Standing, 0, len(players))
	for i := range players {
		p := &players[i]
		standings = append(standings, Standing{
			PlayerID:    p.PlayerID,
			Nickname:    p.Nickname,
			Score:       p.Score,
			TotalTimeMs: p.TotalTimeMs(),
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalTimeMs != b.TotalTimeMs {
			return a.TotalTimeMs < b.TotalTimeMs
		}
		return a.PlayerID < b.PlayerID
	})

	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// Ordinal renders 1 -> "1st", 2 -> "2nd", 3 -> "3rd", 11 -> "11th", etc.
func Ordinal(n int) string {
	suffix := "th"
	if n%100/10 != 1 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
