package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyLimiter applies a token bucket per string key (the client IP) and
// evicts idle entries so the map stays bounded.
type keyLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*limiterEntry
	hits  uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newKeyLimiter creates a per-key limiter; returns nil when the rate
// is not positive, and a nil limiter allows everything.
func newKeyLimiter(rps float64, burst int) *keyLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &keyLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		byKey:   make(map[string]*limiterEntry),
	}
}

// allow reports whether one token can be consumed for the key.
func (l *keyLimiter) allow(key string) bool {
	if l == nil || key == "" {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now

	l.hits++
	if l.hits%256 == 0 {
		l.evictIdle(now)
	}
	return e.limiter.AllowN(now, 1)
}

func (l *keyLimiter) evictIdle(now time.Time) {
	for key, e := range l.byKey {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.byKey, key)
		}
	}
}
