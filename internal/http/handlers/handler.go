package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samoradeng/flaggy/internal/domain"
	"github.com/samoradeng/flaggy/internal/session"
	"github.com/samoradeng/flaggy/internal/store"
)

// HandlerConfig holds tunables for game creation defaults.
type HandlerConfig struct {
	RoundDuration time.Duration
	DefaultFlags  int
	MaxFlags      int
}

type Handler struct {
	Repo     *session.Repository
	Notifier *store.Notifier
	Config   HandlerConfig
}

func NewHandler(repo *session.Repository, notifier *store.Notifier, cfg HandlerConfig) *Handler {
	if cfg.RoundDuration <= 0 {
		cfg.RoundDuration = 10 * time.Second
	}
	if cfg.DefaultFlags <= 0 {
		cfg.DefaultFlags = 10
	}
	if cfg.MaxFlags <= 0 {
		cfg.MaxFlags = 50
	}
	return &Handler{Repo: repo, Notifier: notifier, Config: cfg}
}

// errStatus maps repository errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingPlayer):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortErr(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}
