package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Stale visitor entries are dropped during periodic sweeps so the map does
// not grow without bound across many distinct client addresses.
const (
	sweepInterval = 3 * time.Minute
	visitorTTL    = 10 * time.Minute
)

// rateLimiter enforces a per-client-address request budget. The visitor map
// is the one piece of mutable state shared by concurrent requests, so all
// access goes through the mutex.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	perMinute int
	lastSweep time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     perMinute,
		perMinute: perMinute,
		lastSweep: time.Now(),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	if now.Sub(rl.lastSweep) > sweepInterval {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.lim.Allow()
}

// Middleware rejects clients over their budget with 429 and the standard
// error envelope.
func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			IncrementBackpressure("rate_limit")
			writeJSONError(w, http.StatusTooManyRequests, CodeRateLimited,
				fmt.Sprintf("rate limit exceeded: %d requests per minute", rl.perMinute), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey extracts the client address. RealIP middleware has already
// rewritten RemoteAddr when forwarding headers are present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
