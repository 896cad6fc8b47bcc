package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type hitCounter struct {
	count int
	first time.Time
}

// RateLimiter counts requests per key. A key may make limit requests; once
// over, it is refused until window+penalty has passed since its first hit.
// Entries older than window+penalty are evicted on every call.
type RateLimiter struct {
	mu      sync.Mutex
	hits    map[string]*hitCounter
	limit   int
	window  time.Duration
	penalty time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, window, penalty time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:    make(map[string]*hitCounter),
		limit:   limit,
		window:  window,
		penalty: penalty,
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it may proceed.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ttl := l.window + l.penalty
	for k, h := range l.hits {
		if now.Sub(h.first) >= ttl {
			delete(l.hits, k)
		}
	}

	h, ok := l.hits[key]
	if !ok {
		h = &hitCounter{first: now}
		l.hits[key] = h
	}
	h.count++
	return h.count <= l.limit
}

// Len is the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// Middleware limits requests per client IP and path.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.Request.URL.Path
		if !l.Allow(key) {
			slog.Warn("rate limit exceeded",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
				"request_id", GetRequestID(c),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}
