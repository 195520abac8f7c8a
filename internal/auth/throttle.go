package auth

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// WriteThrottle limits how fast one account may change reviews through the
// API. Each user gets a token bucket refilled at PerMinute tokens a minute.
type WriteThrottle struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[uint]*throttleEntry
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewWriteThrottle returns nil when perMinute is not positive, which disables
// throttling.
func NewWriteThrottle(perMinute, burst int) *WriteThrottle {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &WriteThrottle{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
		limiters: make(map[uint]*throttleEntry),
		now:      time.Now,
	}
}

// reserve takes a token for userID. It returns how long the caller must wait
// when none is available.
func (t *WriteThrottle) reserve(userID uint) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, e := range t.limiters {
		if now.Sub(e.lastSeen) > t.idle {
			delete(t.limiters, id)
		}
	}

	e, ok := t.limiters[userID]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[userID] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware answers 429 with Retry-After once a user runs out of tokens.
// It must run after RequireAuth; anonymous requests pass through.
func (t *WriteThrottle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t == nil {
			c.Next()
			return
		}
		userID := GetUserID(c)
		if userID == 0 {
			c.Next()
			return
		}

		if ok, wait := t.reserve(userID); !ok {
			seconds := int(math.Ceil(wait.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Request was throttled. Expected available in " + strconv.Itoa(seconds) + " seconds.",
			})
			return
		}
		c.Next()
	}
}
