package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter allows max requests per window for each client IP.
// Limiters for idle IPs are dropped once they have been quiet for a full
// window, so the map does not grow without bound.
func RateLimiter(window time.Duration, max int, log *slog.Logger) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)
	perSecond := rate.Limit(float64(max) / window.Seconds())

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			cl = &client{limiter: rate.NewLimiter(perSecond, max)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		if len(clients) > 10000 {
			for k, v := range clients {
				if time.Since(v.lastSeen) > window {
					delete(clients, k)
				}
			}
		}
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			log.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too Many Requests",
				"message": "You have exceeded the rate limit. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
