package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 30 * time.Minute
)

const tooManyRequests = `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet hands out one token bucket per key and forgets keys idle for
// longer than limiterIdleTTL.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	limit    rate.Limit
	burst    int
}

func newLimiterSet(ctx context.Context, requestsPerSecond float64, burst int) *limiterSet {
	s := &limiterSet{
		limiters: make(map[string]*keyedLimiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
	go s.sweep(ctx)
	return s
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	kl, ok := s.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	s.mu.Unlock()

	return kl.limiter.Allow()
}

func (s *limiterSet) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleTTL)
			s.mu.Lock()
			for key, kl := range s.limiters {
				if kl.lastAccess.Before(cutoff) {
					delete(s.limiters, key)
				}
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// limitBy rejects requests whose key has exhausted its bucket. An empty key
// is not limited.
func limitBy(s *limiterSet, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if k := key(r); k != "" && !s.allow(k) {
				http.Error(w, tooManyRequests, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP applies per-IP rate limiting. The client address is read from
// r.RemoteAddr, so chi's RealIP must run first. The sweeper stops with ctx.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return limitBy(newLimiterSet(ctx, requestsPerSecond, burst), clientIP)
}

// RateLimit applies per-user rate limiting on top of RateLimitByIP. Requests
// without a user pass through.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return limitBy(newLimiterSet(ctx, requestsPerSecond, burst), func(r *http.Request) string {
		userID, _ := UserIDFromContext(r.Context())
		return userID
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
