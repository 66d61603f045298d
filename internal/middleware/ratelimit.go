package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yigit/unihousing/internal/app/models/dto"
)

const (
	limiterTTL   = 5 * time.Minute
	sweepEvery   = time.Minute
	rateLimitMsg = "rate limit exceeded"
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst per client.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		now:       time.Now,
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > sweepEvery {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > limiterTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Handler rejects clients over their budget with 429. A zero rate disables limiting.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.perSecond <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("RATE_LIMITED", rateLimitMsg))
			return
		}
		c.Next()
	}
}
