package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window request counter keyed by client. It is an
// abuse-mitigation gate, not a billing-grade limiter: two near-simultaneous
// requests on the same key may both pass near a window boundary.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	window time.Duration
	limit  int
	now    func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a limiter allowing limit requests per key per window. If
// sweepInterval is positive, a background janitor removes expired entries so
// the store does not grow for the life of the process.
func New(window time.Duration, limit int, sweepInterval time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		limit:   limit,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go l.sweep(sweepInterval)
	}

	return l
}

// Allow records a request for key and reports whether it is within the
// current window's budget. The first request of a window (or of a fresh key)
// starts a new window.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !e.resetAt.After(now) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if e.count >= l.limit {
		return false
	}

	e.count++
	return true
}

// Close stops the janitor goroutine.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeExpired()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) removeExpired() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, key)
		}
	}
}

// Key builds the rate-limit partition key from the client-supplied session id
// and the client's network address.
func Key(sessionID, clientIP string) string {
	if clientIP == "" {
		clientIP = "unknown-ip"
	}
	return sessionID + ":" + clientIP
}
