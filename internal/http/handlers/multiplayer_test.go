package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/session"
	"github.com/samoradeng/flaggy/internal/store"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	repo := session.NewRepository(nil, store.NewLocalStore())
	h := NewHandler(repo, store.NewNotifier("", "", 0), HandlerConfig{
		RoundDuration: 50 * time.Millisecond,
		DefaultFlags:  3,
		MaxFlags:      20,
	})

	r := gin.New()
	r.POST("/games", h.CreateGame)
	games := r.Group("/games/:id")
	{
		games.GET("", h.GetState)
		games.POST("/join", h.JoinGame)
		games.POST("/start", h.StartGame)
		games.POST("/advance", h.Advance)
		games.POST("/answer", h.SubmitAnswer)
		games.POST("/leave", h.Leave)
		games.GET("/share", h.Share)
		games.DELETE("", h.DeleteGame)
	}
	r.GET("/join", h.JoinLink)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w.Code
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter()

	var created CreateGameResponse
	code := doJSON(t, r, "POST", "/games", CreateGameRequest{Nickname: "Alice", TotalFlags: 3}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}
	if created.GameID == "" || created.PlayerID == "" {
		t.Fatalf("create returned %+v", created)
	}

	var joined JoinGameResponse
	path := "/games/" + created.GameID
	if code := doJSON(t, r, "POST", path+"/join", JoinGameRequest{Nickname: "Bob"}, &joined); code != http.StatusOK {
		t.Fatalf("join = %d", code)
	}
	if !joined.Joined || len(joined.State.Players) != 2 {
		t.Fatalf("join response %+v", joined)
	}

	// only the host may start
	if code := doJSON(t, r, "POST", path+"/start", StartGameRequest{HostID: joined.PlayerID}, nil); code != http.StatusForbidden {
		t.Fatalf("non-host start = %d; want 403", code)
	}
	if code := doJSON(t, r, "POST", path+"/start", StartGameRequest{HostID: created.PlayerID}, nil); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}

	var st StateResponse
	if code := doJSON(t, r, "GET", path, nil, &st); code != http.StatusOK {
		t.Fatalf("state = %d", code)
	}
	if st.State.Game.Status != domain.StatusPlaying || len(st.State.Game.Flags) != 3 {
		t.Fatalf("state after start: %+v", st.State.Game)
	}

	// answer is judged against the server's round, not the client's claim
	answer := st.State.Game.Flags[0].Name
	var ansRes map[string]any
	if code := doJSON(t, r, "POST", path+"/answer", SubmitAnswerRequest{
		PlayerID: joined.PlayerID, RoundIndex: 0, Value: answer, TimeMs: 1200,
	}, &ansRes); code != http.StatusOK {
		t.Fatalf("answer = %d", code)
	}
	if ansRes["correct"] != true {
		t.Fatalf("right answer judged wrong: %v", ansRes)
	}
	if code := doJSON(t, r, "POST", path+"/answer", SubmitAnswerRequest{
		PlayerID: created.PlayerID, RoundIndex: 0, Value: "definitely not a country", TimeMs: 900,
	}, &ansRes); code != http.StatusOK {
		t.Fatalf("answer = %d", code)
	}
	if ansRes["correct"] != false {
		t.Fatalf("wrong answer judged right: %v", ansRes)
	}

	// share on an unfinished game is a conflict
	if code := doJSON(t, r, "GET", path+"/share?player_id="+joined.PlayerID, nil, nil); code != http.StatusConflict {
		t.Fatalf("share before finish = %d; want 409", code)
	}

	// run the rounds down: each advance waits out the round clock
	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		var adv map[string]any
		if code := doJSON(t, r, "POST", path+"/advance", AdvanceRequest{HostID: created.PlayerID}, &adv); code != http.StatusOK {
			t.Fatalf("advance %d = %d", i, code)
		}
		if adv["advanced"] != true {
			t.Fatalf("advance %d did not advance: %v", i, adv)
		}
	}

	if code := doJSON(t, r, "GET", path, nil, &st); code != http.StatusOK {
		t.Fatalf("state = %d", code)
	}
	if st.State.Game.Status != domain.StatusFinished {
		t.Fatalf("status after last advance = %s; want finished", st.State.Game.Status)
	}
	if len(st.Standings) != 2 || st.Standings[0].Score != 1 {
		t.Fatalf("standings = %+v", st.Standings)
	}

	var share ShareResponse
	if code := doJSON(t, r, "GET", path+"/share?player_id="+joined.PlayerID, nil, &share); code != http.StatusOK {
		t.Fatalf("share = %d", code)
	}
	if share.Text == "" {
		t.Fatal("share text empty")
	}
}

func TestAdvanceEarlyIsNoop(t *testing.T) {
	r := newTestRouter()

	var created CreateGameResponse
	doJSON(t, r, "POST", "/games", CreateGameRequest{Nickname: "Host", TotalFlags: 2, RoundDurationMs: 60000}, &created)
	path := "/games/" + created.GameID
	doJSON(t, r, "POST", path+"/start", StartGameRequest{HostID: created.PlayerID}, nil)

	var adv map[string]any
	if code := doJSON(t, r, "POST", path+"/advance", AdvanceRequest{HostID: created.PlayerID}, &adv); code != http.StatusOK {
		t.Fatalf("advance = %d", code)
	}
	if adv["advanced"] != false {
		t.Fatalf("advance before expiry must be a no-op: %v", adv)
	}
}

func TestUnknownGameIs404(t *testing.T) {
	r := newTestRouter()

	if code := doJSON(t, r, "GET", "/games/ZZZZZZ", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown game state = %d; want 404", code)
	}
	if code := doJSON(t, r, "POST", "/games/ZZZZZZ/join", JoinGameRequest{Nickname: "X"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown game join = %d; want 404", code)
	}
}

func TestJoinLinkRedirect(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/join?game=abc123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("redirect = %d; want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/#game=ABC123" {
		t.Fatalf("location = %q", loc)
	}
}

func TestCreateRejectsOversizedGame(t *testing.T) {
	r := newTestRouter()

	code := doJSON(t, r, "POST", "/games", CreateGameRequest{Nickname: "Host", TotalFlags: 1000}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("oversized create = %d; want 400", code)
	}
}
