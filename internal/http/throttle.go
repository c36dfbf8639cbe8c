package http

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mrlokans/ebooklib/internal/auth"
)

const throttleIdleTTL = 5 * time.Minute

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle applies a token bucket per caller: the user ID when authenticated,
// otherwise the client IP.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	rate     rate.Limit
	burst    int
	exempt   map[string]bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewThrottle creates a throttle and starts its idle-entry cleanup. Requests
// matching an exempt route pattern are never counted.
func NewThrottle(requestsPerSecond float64, burst int, exempt ...string) *Throttle {
	if burst < 1 {
		burst = 1
	}
	t := &Throttle{
		limiters: make(map[string]*throttleEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		exempt:   make(map[string]bool, len(exempt)),
		stopCh:   make(chan struct{}),
	}
	for _, route := range exempt {
		t.exempt[route] = true
	}
	go t.cleanupLoop()
	return t
}

// Stop terminates the cleanup goroutine.
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

func (t *Throttle) limiter(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.limiters[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (t *Throttle) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.cleanup(time.Now())
		case <-t.stopCh:
			return
		}
	}
}

func (t *Throttle) cleanup(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > throttleIdleTTL {
			delete(t.limiters, key)
		}
	}
}

// Middleware rejects callers over their budget with 429 and Retry-After.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.exempt[c.FullPath()] {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if userID := auth.GetUserID(c); userID != 0 {
			key = fmt.Sprintf("user:%d", userID)
		}

		reservation := t.limiter(key, time.Now()).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			seconds := int(delay.Seconds())
			if delay > time.Duration(seconds)*time.Second {
				seconds++
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
