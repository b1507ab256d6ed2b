package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samoradeng/flaggy/internal/countries"
	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/session"
)

// CreateGameRequest holds host-side options for a new lobby.
type CreateGameRequest struct {
	Nickname        string `json:"nickname"`
	TotalFlags      int    `json:"total_flags"`
	Continent       string `json:"continent"`
	RoundDurationMs int64  `json:"round_duration_ms"`
}

type CreateGameResponse struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	JoinPath string `json:"join_path"`
	Store    string `json:"store"`
}

// CreateGame creates a waiting lobby and registers the caller as host.
func (h *Handler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.TotalFlags <= 0 {
		req.TotalFlags = h.Config.DefaultFlags
	}
	if req.TotalFlags > h.Config.MaxFlags {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many flags requested"})
		return
	}

	duration := h.Config.RoundDuration
	if req.RoundDurationMs > 0 {
		duration = time.Duration(req.RoundDurationMs) * time.Millisecond
	}

	gameID, playerID, err := h.Repo.CreateGame(c.Request.Context(), req.TotalFlags, req.Continent, req.Nickname, duration)
	if err != nil {
		abortErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateGameResponse{
		GameID:   gameID,
		PlayerID: playerID,
		JoinPath: "/join?game=" + gameID,
		Store:    h.Repo.ActiveStore(),
	})
}

type JoinGameRequest struct {
	Nickname string `json:"nickname"`
}

type JoinGameResponse struct {
	PlayerID string            `json:"player_id,omitempty"`
	Joined   bool              `json:"joined"`
	State    *domain.GameState `json:"state"`
}

// JoinGame adds a player to a lobby. Joining a finished game returns the
// final state read-only instead of an error, so shared links keep working
// after the game ends.
func (h *Handler) JoinGame(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))

	var req JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	playerID, state, err := h.Repo.JoinGame(c.Request.Context(), gameID, req.Nickname)
	if err != nil {
		abortErr(c, err)
		return
	}

	h.Notifier.Publish(c.Request.Context(), gameID)

	c.JSON(http.StatusOK, JoinGameResponse{
		PlayerID: playerID,
		Joined:   playerID != "",
		State:    state,
	})
}

type StateResponse struct {
	State       *domain.GameState  `json:"state"`
	RemainingMs int64              `json:"remaining_ms"`
	Standings   []session.Standing `json:"standings,omitempty"`
	Store       string             `json:"store"`
}

// GetState returns the current snapshot plus the server-computed countdown.
func (h *Handler) GetState(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))

	state, err := h.Repo.FetchState(c.Request.Context(), gameID)
	if err != nil {
		abortErr(c, err)
		return
	}

	resp := StateResponse{
		State:       state,
		RemainingMs: state.Game.Remaining(time.Now()).Milliseconds(),
		Store:       h.Repo.ActiveStore(),
	}
	if state.Game.Status == domain.StatusFinished {
		resp.Standings = session.Rank(state.Players)
	}
	c.JSON(http.StatusOK, resp)
}

type StartGameRequest struct {
	HostID string `json:"host_id" binding:"required"`
}

// StartGame moves a waiting lobby into play. The flag sequence is drawn
// here so every player sees the same rounds.
func (h *Handler) StartGame(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))

	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	state, err := h.Repo.FetchState(c.Request.Context(), gameID)
	if err != nil {
		abortErr(c, err)
		return
	}
	if state.Game.HostID != req.HostID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can start the game"})
		return
	}

	flags, err := countries.Pick(state.Game.TotalFlags, state.Game.Continent)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Repo.StartGame(c.Request.Context(), gameID, req.HostID, flags, time.Now()); err != nil {
		abortErr(c, err)
		return
	}

	h.Notifier.Publish(c.Request.Context(), gameID)
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

type AdvanceRequest struct {
	HostID string `json:"host_id" binding:"required"`
}

// Advance moves the game to the next round when the current round's time
// is up. Non-host callers are rejected; early calls are a no-op so clients
// can poll this endpoint without coordination.
func (h *Handler) Advance(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))

	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	state, err := h.Repo.FetchState(c.Request.Context(), gameID)
	if err != nil {
		abortErr(c, err)
		return
	}
	game := state.Game
	if game.HostID != req.HostID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can advance rounds"})
		return
	}
	if game.Status != domain.StatusPlaying {
		c.JSON(http.StatusOK, gin.H{"advanced": false, "status": game.Status})
		return
	}
	if game.Remaining(time.Now()) > 0 {
		c.JSON(http.StatusOK, gin.H{"advanced": false, "status": game.Status})
		return
	}

	advReq := session.NextAdvance(&game, req.HostID, time.Now())
	if err := h.Repo.AdvanceRound(c.Request.Context(), advReq); err != nil {
		abortErr(c, err)
		return
	}

	h.Notifier.Publish(c.Request.Context(), gameID)
	c.JSON(http.StatusOK, gin.H{"advanced": true, "finished": advReq.Finish, "next_index": advReq.NextIndex})
}

type SubmitAnswerRequest struct {
	PlayerID   string `json:"player_id" binding:"required"`
	RoundIndex int    `json:"round_index"`
	Value      string `json:"value" binding:"required"`
	TimeMs     int64  `json:"time_ms"`
}

// SubmitAnswer records one player's guess for a round. Correctness is
// judged server-side against the round's country so clients cannot spoof
// scores. Resubmission overwrites, last write wins.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	state, err := h.Repo.FetchState(c.Request.Context(), gameID)
	if err != nil {
		abortErr(c, err)
		return
	}
	game := state.Game
	if game.Status != domain.StatusPlaying {
		c.JSON(http.StatusConflict, gin.H{"error": "game is not in play"})
		return
	}
	if req.RoundIndex < 0 || req.RoundIndex >= len(game.Flags) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "round index out of range"})
		return
	}

	round := game.Flags[req.RoundIndex]
	correct := strings.EqualFold(req.Value, round.Name) || strings.EqualFold(req.Value, round.Code)

	if err := h.Repo.SubmitAnswer(c.Request.Context(), gameID, req.PlayerID, req.RoundIndex, req.Value, correct, req.TimeMs); err != nil {
		abortErr(c, err)
		return
	}

	h.Notifier.Publish(c.Request.Context(), gameID)
	c.JSON(http.StatusOK, gin.H{"correct": correct, "answer": round.Name})
}

type LeaveRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// Leave marks a player disconnected. The record stays so the player keeps
// a slot in the final standings.
func (h *Handler) Leave(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))

	var req LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.Repo.SetConnected(c.Request.Context(), gameID, req.PlayerID, false); err != nil {
		abortErr(c, err)
		return
	}

	h.Notifier.Publish(c.Request.Context(), gameID)
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// DeleteGame removes a game record. Host only.
func (h *Handler) DeleteGame(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))
	hostID := c.Query("host_id")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host_id required"})
		return
	}

	state, err := h.Repo.FetchState(c.Request.Context(), gameID)
	if err != nil {
		abortErr(c, err)
		return
	}
	if state.Game.HostID != hostID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can delete the game"})
		return
	}

	if err := h.Repo.DeleteGame(c.Request.Context(), gameID, hostID); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type ShareResponse struct {
	Text      string             `json:"text"`
	Standings []session.Standing `json:"standings"`
}

// Share returns the copyable result text for a finished game.
func (h *Handler) Share(c *gin.Context) {
	gameID := strings.ToUpper(c.Param("id"))
	playerID := c.Query("player_id")

	state, err := h.Repo.FetchState(c.Request.Context(), gameID)
	if err != nil {
		abortErr(c, err)
		return
	}
	if state.Game.Status != domain.StatusFinished {
		c.JSON(http.StatusConflict, gin.H{"error": "game is not finished"})
		return
	}

	standings := session.Rank(state.Players)
	c.JSON(http.StatusOK, ShareResponse{
		Text:      session.GenerateShareText(standings, playerID, state.Game.TotalFlags),
		Standings: standings,
	})
}

// Continents lists the selectable continent filters.
func (h *Handler) Continents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"continents": countries.Continents()})
}

// JoinLink redirects a shared lobby link into the SPA. Keeps old-style
// /join?game=XYZ links working.
func (h *Handler) JoinLink(c *gin.Context) {
	gameID := strings.ToUpper(c.Query("game"))
	if gameID == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.Redirect(http.StatusFound, "/#game="+gameID)
}
