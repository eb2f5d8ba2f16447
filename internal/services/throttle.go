package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleStore decides whether an update for key is accepted at now
type ThrottleStore interface {
	Allow(key string, now time.Time) bool
	// Release hands back a slot taken by Allow for an update that was not stored
	Release(key string)
}

// MemoryThrottle admits at most one update per key per interval. State is
// process-local; with several replicas each one throttles independently.
type MemoryThrottle struct {
	limiters map[string]*rate.Limiter
	mutex    sync.Mutex
	limit    rate.Limit
}

// NewMemoryThrottle creates a throttle admitting one update per interval
func NewMemoryThrottle(interval time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(interval),
	}
}

// Allow consumes the key's slot if one is available
func (t *MemoryThrottle) Allow(key string, now time.Time) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	limiter, exists := t.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(t.limit, 1)
		t.limiters[key] = limiter
	}

	return limiter.AllowN(now, 1)
}

// Release forgets the key. Allow only grants a slot after a full interval
// without accepted updates, so a fresh limiter is the state it found.
func (t *MemoryThrottle) Release(key string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.limiters, key)
}

// Prune drops keys whose slot has refilled, returning how many were removed.
// A dropped key behaves exactly like a fresh one.
func (t *MemoryThrottle) Prune(now time.Time) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	removed := 0
	for key, limiter := range t.limiters {
		if limiter.TokensAt(now) < 1 {
			continue
		}
		delete(t.limiters, key)
		removed++
	}
	return removed
}

// Len returns the number of tracked keys
func (t *MemoryThrottle) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.limiters)
}
