package session

import (
	"fmt"
	"strings"
)

const shareFooter = "Play flag trivia at https://flaggy.app"

// GenerateShareText builds the multi-line results share block: a rank
// line (k/total), a score line (score/totalRounds), a celebratory line
// for the podium and a fixed promotional footer. When the player id is
// missing from the standings (record not yet replicated) it degrades to
// the first available player's view rather than failing.
func GenerateShareText(standings []Standing, playerID string, totalRounds int) string {
	if len(standings) == 0 {
		return shareFooter
	}

	self := standings[0]
	for _, s := range standings {
		if s.PlayerID == playerID {
			self = s
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌍 Flag trivia — %s of %d players\n", Ordinal(self.Rank), len(standings))
	fmt.Fprintf(&b, "✅ %d/%d flags\n", self.Score, totalRounds)
	switch {
	case self.Rank == 1:
		b.WriteString("🏆 Champion of the lobby!\n")
	case self.Rank <= 3:
		b.WriteString("🔥 Podium finish!\n")
	}
	b.WriteString(shareFooter)
	return b.String()
}
