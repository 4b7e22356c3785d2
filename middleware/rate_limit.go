package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/gin-gonic/gin"
)

type clientWindow struct {
	start time.Time
	count int
}

// RateLimiter counts requests per client in fixed windows that start at the
// client's first request.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	rate    int           // requests per window
	window  time.Duration // time window
	now     func() time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientWindow),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// Allow records one request for key. When the limit is reached it returns
// false and how long until the key's window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.prune(now)
		l.clients[key] = &clientWindow{start: now, count: 1}
		return true, 0
	}

	if w.count >= l.rate {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// prune drops expired windows. Must be called with lock held.
func (l *RateLimiter) prune(now time.Time) {
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, key)
		}
	}
}

// RateLimit middleware limits requests per client IP. A non-positive rate disables it.
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	if rate <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		ok, retryAfter := limiter.Allow(clientIP)
		if !ok {
			logger.Warn(c.Request.Context(), "rate limit exceeded", "client_ip", clientIP)

			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
