package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Buckets are created
// lazily and dropped on Reset.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per client with a burst of the
// same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Allow reports whether the client identified by key may proceed.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.Allow()
}

// Reset drops all buckets, lifting any limits currently in effect.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}

// Limiters groups the per-route-class rate limiters.
type Limiters struct {
	Auth       *RateLimiter
	Charts     *RateLimiter
	Favourites *RateLimiter
	Probe      *RateLimiter
}

// NewLimiters creates the default limiter set.
func NewLimiters() *Limiters {
	return &Limiters{
		Auth:       NewRateLimiter(10),
		Charts:     NewRateLimiter(60),
		Favourites: NewRateLimiter(120),
		Probe:      NewRateLimiter(3),
	}
}

// ResetAll drops every bucket in every limiter.
func (ls *Limiters) ResetAll() {
	ls.Auth.Reset()
	ls.Charts.Reset()
	ls.Favourites.Reset()
	ls.Probe.Reset()
}

// clientIP extracts the real client address, honoring X-Forwarded-For set by
// the reverse proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit rejects requests over the limiter's budget with 429.
func rateLimit(limiter *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientIP(r)) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}
