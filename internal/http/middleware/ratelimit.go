package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientWindow struct {
	last  time.Time
	count int
}

var rlMu sync.Mutex
var clients = make(map[string]*clientWindow)

// SimpleRateLimit blocks clients that send more than maxRequests per window.
// Used when Redis is not configured.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rlMu.Lock()
		cw, ok := clients[ip]
		if !ok {
			cw = &clientWindow{last: time.Now(), count: 1}
			clients[ip] = cw
			rlMu.Unlock()
			c.Next()
			return
		}

		now := time.Now()
		if now.Sub(cw.last) > window {
			cw.last = now
			cw.count = 1
			rlMu.Unlock()
			c.Next()
			return
		}

		cw.count++
		rlMu.Unlock()

		if cw.count > maxRequests {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
