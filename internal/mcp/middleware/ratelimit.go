package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/btouchard/warren/internal/config"
)

// maxTrackedClients bounds the bucket map; stale entries are pruned when
// it fills up.
const maxTrackedClients = 1024

// RateLimit returns middleware enforcing a per-IP token-bucket limit on
// the endpoint it wraps, so one noisy client cannot exhaust the budget
// for everyone. Zero requests-per-minute disables limiting.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	l := &ipLimiter{
		buckets: make(map[string]*bucket),
		max:     float64(burst),
		perSec:  float64(cfg.RequestsPerMinute) / 60.0,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.take(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     float64
	perSec  float64
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

func (l *ipLimiter) take(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= maxTrackedClients {
			l.prune(now)
		}
		b = &bucket{tokens: l.max, lastFill: now}
		l.buckets[ip] = b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * l.perSec
	if b.tokens > l.max {
		b.tokens = l.max
	}
	b.lastFill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// prune drops buckets idle long enough to have refilled completely.
func (l *ipLimiter) prune(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.lastFill) > time.Minute {
			delete(l.buckets, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
