package auth

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginThrottle budgets failed logins per client IP. Per-account lockout is
// kept in the users table; this catches one address cycling through many
// accounts.
type LoginThrottle struct {
	mu      sync.Mutex
	clients map[string]*ipBudget
	every   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

type ipBudget struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginThrottle allows failures failed logins per window from one IP,
// refilling evenly across the window.
func NewLoginThrottle(failures int, window time.Duration) *LoginThrottle {
	if failures <= 0 {
		failures = 20
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	t := &LoginThrottle{
		clients: make(map[string]*ipBudget),
		every:   rate.Every(window / time.Duration(failures)),
		burst:   failures,
		idle:    window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go t.sweepLoop(window)
	return t
}

// Stop ends the idle sweep.
func (t *LoginThrottle) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

func (t *LoginThrottle) budget(ip string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.clients[ip]
	if !ok {
		b = &ipBudget{limiter: rate.NewLimiter(t.every, t.burst)}
		t.clients[ip] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Check reports how long ip must wait before its next attempt; zero means go.
func (t *LoginThrottle) Check(ip string) time.Duration {
	now := t.now()
	r := t.budget(ip, now).ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay
}

// Fail spends one attempt from ip's budget.
func (t *LoginThrottle) Fail(ip string) {
	now := t.now()
	t.budget(ip, now).AllowN(now, 1)
}

func (t *LoginThrottle) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now())
		case <-t.stopCh:
			return
		}
	}
}

// sweep drops idle addresses; a limiter idle for a full window is refilled anyway.
func (t *LoginThrottle) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ip, b := range t.clients {
		if now.Sub(b.lastSeen) > t.idle {
			delete(t.clients, ip)
		}
	}
}

// retryAfterSeconds renders a duration for the Retry-After header, rounding up.
func retryAfterSeconds(d time.Duration) string {
	seconds := int(d / time.Second)
	if d%time.Second != 0 {
		seconds++
	}
	return strconv.Itoa(seconds)
}
