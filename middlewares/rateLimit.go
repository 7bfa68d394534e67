package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per key. Buckets idle for longer than
// limiterIdleTTL are dropped on the next sweep.
type limiterSet struct {
	mu        sync.Mutex
	r         rate.Limit
	b         int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(r rate.Limit, b int) *limiterSet {
	return &limiterSet{r: r, b: b, entries: make(map[string]*limiterEntry), lastSweep: time.Now()}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.r, s.b)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func RateLimitMiddleware(r rate.Limit, b int, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	limiters := newLimiterSet(r, b)
	return func(c *gin.Context) {
		if !limiters.get(keyFunc(c), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down :("})
			return
		}
		c.Next()
	}
}

// PrincipalOrIPKey keys limiters per route by principal, or by client address
// for unauthenticated calls.
func PrincipalOrIPKey(c *gin.Context) string {
	if p, ok := CurrentPrincipal(c); ok {
		return "principal:" + p.ID + ":" + c.FullPath()
	}
	return "ip:" + c.ClientIP() + ":" + c.FullPath()
}
