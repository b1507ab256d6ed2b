// Package countries is the round-generation collaborator: a small
// embedded country/flag dataset and the random selection the session
// layer asks for when a host starts a game. The full dataset lives in
// the frontend; this covers every continent well enough for rounds and
// tests.
package countries

import (
	"fmt"
	"math/rand"

	"github.com/samoradeng/flaggy/internal/domain"
)

// Country is one flag the quiz can ask about.
type Country struct {
	Code      string // ISO 3166-1 alpha-2, lowercase
	Name      string
	Continent string
}

const optionsPerRound = 4

var all = []Country{
	{"ng", "Nigeria", "Africa"},
	{"eg", "Egypt", "Africa"},
	{"za", "South Africa", "Africa"},
	{"ke", "Kenya", "Africa"},
	{"ma", "Morocco", "Africa"},
	{"gh", "Ghana", "Africa"},
	{"et", "Ethiopia", "Africa"},
	{"sn", "Senegal", "Africa"},
	{"tz", "Tanzania", "Africa"},
	{"dz", "Algeria", "Africa"},
	{"jp", "Japan", "Asia"},
	{"cn", "China", "Asia"},
	{"in", "India", "Asia"},
	{"kr", "South Korea", "Asia"},
	{"th", "Thailand", "Asia"},
	{"vn", "Vietnam", "Asia"},
	{"id", "Indonesia", "Asia"},
	{"my", "Malaysia", "Asia"},
	{"ph", "Philippines", "Asia"},
	{"sa", "Saudi Arabia", "Asia"},
	{"tr", "Turkey", "Asia"},
	{"il", "Israel", "Asia"},
	{"fr", "France", "Europe"},
	{"de", "Germany", "Europe"},
	{"it", "Italy", "Europe"},
	{"es", "Spain", "Europe"},
	{"pt", "Portugal", "Europe"},
	{"gb", "United Kingdom", "Europe"},
	{"ie", "Ireland", "Europe"},
	{"nl", "Netherlands", "Europe"},
	{"be", "Belgium", "Europe"},
	{"ch", "Switzerland", "Europe"},
	{"at", "Austria", "Europe"},
	{"se", "Sweden", "Europe"},
	{"no", "Norway", "Europe"},
	{"fi", "Finland", "Europe"},
	{"dk", "Denmark", "Europe"},
	{"pl", "Poland", "Europe"},
	{"gr", "Greece", "Europe"},
	{"ua", "Ukraine", "Europe"},
	{"us", "United States", "North America"},
	{"ca", "Canada", "North America"},
	{"mx", "Mexico", "North America"},
	{"cu", "Cuba", "North America"},
	{"jm", "Jamaica", "North America"},
	{"pa", "Panama", "North America"},
	{"cr", "Costa Rica", "North America"},
	{"br", "Brazil", "South America"},
	{"ar", "Argentina", "South America"},
	{"cl", "Chile", "South America"},
	{"co", "Colombia", "South America"},
	{"pe", "Peru", "South America"},
	{"uy", "Uruguay", "South America"},
	{"ve", "Venezuela", "South America"},
	{"au", "Australia", "Oceania"},
	{"nz", "New Zealand", "Oceania"},
	{"fj", "Fiji", "Oceania"},
	{"pg", "Papua New Guinea", "Oceania"},
}

// Continents lists the filter values Pick accepts, in no fixed order.
func Continents() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range all {
		if !seen[c.Continent] {
			seen[c.Continent] = true
			out = append(out, c.Continent)
		}
	}
	return out
}

// Pick selects n distinct countries, optionally restricted to one
// continent, and builds a round per country with the correct name mixed
// into three decoys drawn from the same pool.
func Pick(n int, continent string) ([]domain.Round, error) {
	pool := make([]Country, 0, len(all))
	for _, c := range all {
		if continent == "" || c.Continent == continent {
			pool = append(pool, c)
		}
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid round count %d", n)
	}
	if n > len(pool) {
		return nil, fmt.Errorf("only %d countries available for %q, need %d", len(pool), continent, n)
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	rounds := make([]domain.Round, 0, n)
	for i := 0; i < n; i++ {
		c := pool[i]
		rounds = append(rounds, domain.Round{
			Code:    c.Code,
			Name:    c.Name,
			Options: options(c, pool),
		})
	}
	return rounds, nil
}

func options(correct Country, pool []Country) []string {
	opts := []string{correct.Name}
	perm := rand.Perm(len(pool))
	for _, idx := range perm {
		if len(opts) == optionsPerRound {
			break
		}
		if pool[idx].Code != correct.Code {
			opts = append(opts, pool[idx].Name)
		}
	}
	rand.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}
