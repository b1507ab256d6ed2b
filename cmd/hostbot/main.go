package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/samoradeng/flaggy/internal/countries"
	"github.com/samoradeng/flaggy/internal/db"
	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/logger"
	"github.com/samoradeng/flaggy/internal/session"
	"github.com/samoradeng/flaggy/internal/store"
)

// hostbot runs a headless host: it creates a game, waits for players,
// starts the rounds and drives them to the end. Useful for demoing a
// lobby or smoke-testing a deployment without a browser host.

type consoleRenderer struct{}

func (consoleRenderer) ShowRound(index int, round domain.Round, remaining time.Duration) {
	fmt.Printf("\n=== round %d: %s (%s) — %v to answer\n", index+1, round.Name, round.Code, remaining.Round(time.Second))
}

func (consoleRenderer) ShowCountdown(remaining time.Duration) {
	fmt.Printf("\r%4.0fs left ", remaining.Seconds())
}

func (consoleRenderer) ShowPlayers(players []domain.PlayerRecord, connected int) {
	fmt.Printf("| %d players (%d online)", len(players), connected)
}

func (consoleRenderer) ShowResults(standings []session.Standing) {
	fmt.Println("\n\n=== final standings")
	for _, s := range standings {
		fmt.Printf("%3s  %-16s %d pts  (%.1fs)\n", session.Ordinal(s.Rank), s.Nickname, s.Score, float64(s.TotalTimeMs)/1000)
	}
}

func main() {
	_ = godotenv.Load()

	nickname := flag.String("nickname", "HostBot", "host nickname")
	totalFlags := flag.Int("flags", 10, "rounds per game")
	continent := flag.String("continent", "", "restrict flags to one continent")
	wait := flag.Duration("wait", 30*time.Second, "how long to hold the lobby open before starting")
	minPlayers := flag.Int("min-players", 2, "start as soon as this many players joined")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"), false)

	var networked store.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := db.Connect(dsn)
		if err != nil {
			log.Fatalf("database unavailable: %v", err)
		}
		defer pool.Close()
		networked = store.NewPostgresStore(pool)
	}
	repo := session.NewRepository(networked, store.NewLocalStore())

	sess := session.NewSession(repo, session.Options{Renderer: consoleRenderer{}})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gameID, err := sess.Create(ctx, *totalFlags, *continent, *nickname)
	if err != nil {
		log.Fatalf("create game: %v", err)
	}
	fmt.Printf("lobby open: %s (share /join?game=%s)\n", gameID, gameID)

	waitForPlayers(ctx, repo, gameID, *minPlayers, *wait)

	flags, err := countries.Pick(*totalFlags, *continent)
	if err != nil {
		log.Fatalf("pick flags: %v", err)
	}
	if res := sess.Start(ctx, flags); !res.Success {
		log.Fatalf("start game: %s", res.Error)
	}
	fmt.Println("game started")

	sess.Run(ctx)
	sess.Leave(context.Background())
}

// waitForPlayers holds the lobby open until enough players join or the
// wait budget runs out, whichever comes first.
func waitForPlayers(ctx context.Context, repo *session.Repository, gameID string, minPlayers int, wait time.Duration) {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		state, err := repo.FetchState(ctx, gameID)
		if err != nil {
			continue
		}
		fmt.Printf("\rwaiting: %d joined ", len(state.Players))
		if len(state.Players) >= minPlayers {
			fmt.Println()
			return
		}
	}
	fmt.Println("\nwait budget spent, starting anyway")
}
