package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientLimiter hands out one token bucket per client address. Buckets of
// clients that stay quiet for idleTTL are forgotten.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	r       rate.Limit
	b       int
	idleTTL time.Duration
}

// NewClientLimiter creates a ClientLimiter allowing r requests per second
// with bursts of b.
func NewClientLimiter(r rate.Limit, b int, idleTTL time.Duration) *ClientLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &ClientLimiter{
		buckets: cache.New(idleTTL, 2*idleTTL),
		r:       r,
		b:       b,
		idleTTL: idleTTL,
	}
}

// Allow reports whether the client may make a request now.
func (l *ClientLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := l.buckets.Get(client); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.r, l.b)
	}
	l.buckets.Set(client, limiter, l.idleTTL)
	return limiter.Allow()
}

// RateLimiter rejects requests beyond the client's budget with 429.
func RateLimiter(limiter *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
