package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the
// middleware. If addr is empty or the connection fails, redisClient stays
// nil and the middleware falls back to the in-process limiter.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// on ping failure, disable redis client to keep server available
		redisClient = nil
	}
}

// RateLimit limits requests per client IP using a Redis fixed window when
// redis is configured, or the in-process window otherwise.
// key format: rl:<window_seconds>:<identifier>
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	inProcess := SimpleRateLimit(maxRequests, window)
	return func(c *gin.Context) {
		if redisClient == nil {
			inProcess(c)
			return
		}

		ident := c.ClientIP()
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// on Redis error, fail-open (allow) but set header
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// AnswerRateLimit throttles answer submissions per game per client. One
// answer per round is the expected rate; this only curbs runaway clients.
func AnswerRateLimit(maxAnswers int, window time.Duration) gin.HandlerFunc {
	inProcess := SimpleRateLimit(maxAnswers, window)
	return func(c *gin.Context) {
		if redisClient == nil {
			inProcess(c)
			return
		}

		key := "ans_rl:" + c.Param("id") + ":" + c.ClientIP() + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-AnswerRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-AnswerRateLimit-Limit", strconv.Itoa(maxAnswers))
		c.Header("X-AnswerRateLimit-Remaining", strconv.FormatInt(remaining(int64(maxAnswers), val), 10))

		if val > int64(maxAnswers) {
			RLBlocked.WithLabelValues("answer:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "answer rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("answer:" + c.FullPath()).Inc()
		c.Next()
	}
}

func remaining(limit, used int64) int64 {
	if limit > used {
		return limit - used
	}
	return 0
}
