package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limiting defaults. Every client starts with a full bucket of
// defaultRateBurst tokens refilling at defaultRateRefill tokens per
// second, which tolerates bursty article ingestion while keeping one
// client from monopolizing the embedding budget.
const (
	defaultRateRefill = rate.Limit(1)
	defaultRateBurst  = 60

	visitorSweepEvery = 5 * time.Minute
	visitorStaleAfter = 10 * time.Minute
)

// visitor is one client's token bucket.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter tracks a token bucket per client IP. Stale buckets are
// swept inline from allow, so no background goroutine is needed.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	refill    rate.Limit
	burst     int
	lastSweep time.Time
}

func newRateLimiter(refill rate.Limit, burst int) *rateLimiter {
	if refill <= 0 {
		refill = defaultRateRefill
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		refill:    refill,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// allow consumes one token from ip's bucket, creating the bucket on
// first sight. Reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweepLocked(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.refill, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// sweepLocked drops buckets idle past visitorStaleAfter. Caller holds
// rl.mu.
func (rl *rateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < visitorSweepEvery {
		return
	}
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorStaleAfter {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

// rateLimitMiddleware rejects requests from clients that have drained
// their token bucket with 429 and a Retry-After hint.
func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !rl.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the address requests are rate limited by.
//
// Proxy headers are honored only when trustProxy is set: X-Real-IP
// first, then the first entry of X-Forwarded-For. Either value must
// parse as an IP or it is ignored, so a client cannot smuggle an
// arbitrary string in as its bucket key. Without trustProxy the
// connection's RemoteAddr is the only source consulted.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
