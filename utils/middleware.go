package utils

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDKey contextKey = "requestID"

// RequestIDMiddleware tags every request with an X-Request-ID, reusing the
// caller's value when one is supplied.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// TooManyRequests is the error message of every rate-limited response.
const TooManyRequests = "Too many requests, try again later"

// RateLimitConfig is a token bucket per client IP.
type RateLimitConfig struct {
	Rate  rate.Limit
	Burst int
}

// AuthRateLimit guards signup and login.
var AuthRateLimit = RateLimitConfig{Rate: rate.Every(3 * time.Second), Burst: 20}

// ChatRateLimit guards the chatbot, which calls a paid model.
var ChatRateLimit = RateLimitConfig{Rate: rate.Every(2 * time.Second), Burst: 10}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one limiter per client IP and forgets clients idle for
// longer than idleTTL.
type RateLimiter struct {
	cfg     RateLimitConfig
	idleTTL time.Duration
	proxies *TrustedProxies

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter keys clients by socket address, or by the forwarded
// address when the request arrives through one of proxies. proxies may be nil.
func NewRateLimiter(cfg RateLimitConfig, proxies *TrustedProxies) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		idleTTL:  10 * time.Minute,
		proxies:  proxies,
		visitors: make(map[string]*visitor),
	}
}

// Key is the client identity r is counted against.
func (rl *RateLimiter) Key(r *http.Request) string {
	return rl.proxies.ClientIP(r)
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > time.Minute {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.cfg.Rate, rl.cfg.Burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// Limit wraps a handler so excess requests get 429.
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.Key(r)) {
			RespondWithError(w, http.StatusTooManyRequests, TooManyRequests)
			return
		}
		next(w, r)
	}
}
