package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samoradeng/flaggy/internal/config"
	"github.com/samoradeng/flaggy/internal/http/handlers"
	"github.com/samoradeng/flaggy/internal/http/middleware"
	"github.com/samoradeng/flaggy/internal/session"
	"github.com/samoradeng/flaggy/internal/store"
	"github.com/samoradeng/flaggy/internal/ws"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, repo *session.Repository, notifier *store.Notifier, version string, cfg *config.Config) {
	h := handlers.NewHandler(repo, notifier, handlers.HandlerConfig{
		RoundDuration: cfg.RoundDuration(),
		DefaultFlags:  cfg.DefaultFlags,
		MaxFlags:      cfg.MaxFlags,
	})
	healthHandler := handlers.NewHealthHandler(db, repo, notifier, version)

	apiRateWindow := time.Duration(cfg.APIRateWindowSeconds) * time.Second
	answerRateWindow := time.Duration(cfg.AnswerRateWindowSeconds) * time.Second

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Shared lobby links land here and bounce into the SPA
	r.GET("/join", h.JoinLink)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.APIRateLimit, apiRateWindow))

	v1.GET("/continents", h.Continents)
	v1.POST("/games", h.CreateGame)

	games := v1.Group("/games/:id")
	{
		games.GET("", h.GetState)
		games.POST("/join", h.JoinGame)
		games.POST("/start", h.StartGame)
		games.POST("/advance", h.Advance)
		games.POST("/answer", middleware.AnswerRateLimit(cfg.AnswerRateLimit, answerRateWindow), h.SubmitAnswer)
		games.POST("/leave", h.Leave)
		games.GET("/share", h.Share)
		games.DELETE("", h.DeleteGame)
	}

	// WebSocket push channel for game state
	hub := ws.NewHub(repo, notifier, cfg.PollInterval())
	r.GET("/ws", h.WS(hub))
}
