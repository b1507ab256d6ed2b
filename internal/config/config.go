package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty runs the server on the local store only
	LogLevel    string
	LogJSON     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Game timing, milliseconds in env
	PollIntervalMs       int
	RoundDurationMs      int
	MinAdvanceIntervalMs int

	DefaultFlags int
	MaxFlags     int

	APIRateLimit            int
	APIRateWindowSeconds    int
	AnswerRateLimit         int
	AnswerRateWindowSeconds int
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundDurationMs) * time.Millisecond
}

func (c *Config) MinAdvanceInterval() time.Duration {
	return time.Duration(c.MinAdvanceIntervalMs) * time.Millisecond
}

// Load reads configuration from the environment, with .env as a fallback.
// Everything has a workable default; only the port is required to be sane.
func Load() *Config {
	_ = godotenv.Load()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogJSON:     os.Getenv("LOG_JSON") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		PollIntervalMs:       envInt("POLL_INTERVAL_MS", 2000),
		RoundDurationMs:      envInt("ROUND_DURATION_MS", 10000),
		MinAdvanceIntervalMs: envInt("MIN_ADVANCE_INTERVAL_MS", 3000),

		DefaultFlags: envInt("DEFAULT_FLAGS", 10),
		MaxFlags:     envInt("MAX_FLAGS", 50),

		APIRateLimit:            envInt("API_RATE_LIMIT", 120),
		APIRateWindowSeconds:    envInt("API_RATE_WINDOW_SECONDS", 60),
		AnswerRateLimit:         envInt("ANSWER_RATE_LIMIT", 30),
		AnswerRateWindowSeconds: envInt("ANSWER_RATE_WINDOW_SECONDS", 60),
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
