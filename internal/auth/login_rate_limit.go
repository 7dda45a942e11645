package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"streamhub-api/internal/httpx"
	"streamhub-api/internal/observability"
)

// LoginRateLimiter is a sliding-window per-IP limiter in front of the login
// endpoint. State is process-local; each instance enforces its own window.
type LoginRateLimiter struct {
	mu      sync.Mutex
	maxHits int
	window  time.Duration
	hits    map[string][]time.Time

	// maxKeys bounds memory under address churn; stale keys are swept when
	// the map grows past it.
	maxKeys int
}

func NewLoginRateLimiter(maxHits int, window time.Duration) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		maxHits: maxHits,
		window:  window,
		hits:    make(map[string][]time.Time),
		maxKeys: 5000,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.allow(observability.ClientIP(r), time.Now().UTC())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			httpx.WriteError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := pruneBefore(l.hits[ip], threshold)

	if len(recent) >= l.maxHits {
		l.hits[ip] = recent
		retryAfter := recent[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter
	}

	l.hits[ip] = append(recent, now)
	if len(l.hits) > l.maxKeys {
		l.sweepLocked(threshold)
	}

	return true, 0
}

func (l *LoginRateLimiter) sweepLocked(threshold time.Time) {
	for key, stamps := range l.hits {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(threshold) {
			delete(l.hits, key)
		}
	}
}

func pruneBefore(stamps []time.Time, threshold time.Time) []time.Time {
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(threshold) {
			kept = append(kept, stamp)
		}
	}
	return kept
}
