package middleware

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter guards the permissionless take_snapshot and
// update_eligible_harvest endpoints per caller IP, an ambient abuse guard
// layered on top of (not a replacement for) the protocol-level
// min_snapshot_window_slots check, in the spirit of the teacher's POTSO
// heartbeat rate limiting.
type RateLimiter struct {
	logger        *log.Logger
	ratePerSecond float64
	burst         int
	mu            sync.Mutex
	visitors      map[string]*rate.Limiter
	clockNow      func() time.Time
}

// NewRateLimiter constructs a RateLimiter allowing ratePerSecond sustained
// requests per caller IP with the given burst.
func NewRateLimiter(ratePerSecond float64, burst int, logger *log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.Default()
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		logger:        logger,
		ratePerSecond: ratePerSecond,
		burst:         burst,
		visitors:      make(map[string]*rate.Limiter),
		clockNow:      time.Now,
	}
}

// Middleware rejects requests from a caller IP exceeding the configured
// rate with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		limiter := r.obtainLimiter(clientIP(req))
		if !limiter.AllowN(r.clockNow(), 1) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *RateLimiter) obtainLimiter(id string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limiter, ok := r.visitors[id]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(r.ratePerSecond), r.burst)
	r.visitors[id] = limiter
	return limiter
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
