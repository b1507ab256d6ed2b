package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samoradeng/flaggy/internal/config"
	"github.com/samoradeng/flaggy/internal/db"
	httpServer "github.com/samoradeng/flaggy/internal/http"
	"github.com/samoradeng/flaggy/internal/http/middleware"
	"github.com/samoradeng/flaggy/internal/logger"
	"github.com/samoradeng/flaggy/internal/session"
	"github.com/samoradeng/flaggy/internal/store"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	// Networked store is optional: without DATABASE_URL, or when the
	// database is unreachable at boot, games run on the local store.
	var networked store.Store
	var dbPool = connectDB(cfg)
	if dbPool != nil {
		defer dbPool.Close()
		networked = store.NewPostgresStore(dbPool)
	}
	repo := session.NewRepository(networked, store.NewLocalStore())
	logger.Info("store ready", "active", repo.ActiveStore())

	notifier := store.NewNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, dbPool, repo, notifier, version, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

func connectDB(cfg *config.Config) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set; running on local store only")
		return nil
	}
	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Warn("database unavailable; running on local store only", "error", err)
		return nil
	}
	return pool
}
