package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Request pacing kept under Google's per-user quotas.
const (
	DriveRequestsPerSecond    = 8.0
	UserInfoRequestsPerSecond = 5.0

	defaultBurst   = 10
	defaultBackoff = 60 * time.Second

	poolSize = 1024
	poolTTL  = 30 * time.Minute
)

// RateLimiter is a token bucket that also honours Retry-After.
type RateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimiter paces to rps with the given burst. A non-positive rps
// disables pacing but keeps backoff.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Wait blocks until a request may be made or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Backoff holds every request for d after a 429. Zero uses a minute.
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = defaultBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// Allow reports whether a request may be made now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()
	return !time.Now().Before(retryAt) && r.limiter.Allow()
}

// LimiterPool shares one RateLimiter per access token, so concurrent jobs
// for the same user draw on the same quota. Idle limiters expire.
type LimiterPool struct {
	rps   float64
	burst int

	mu    sync.Mutex
	cache *expirable.LRU[string, *RateLimiter]
}

// NewLimiterPool creates a pool of limiters pacing to rps.
func NewLimiterPool(rps float64, burst int) *LimiterPool {
	return &LimiterPool{
		rps:   rps,
		burst: burst,
		cache: expirable.NewLRU[string, *RateLimiter](poolSize, nil, poolTTL),
	}
}

// For returns the limiter for accessToken. Tokens are hashed before use
// as keys.
func (p *LimiterPool) For(accessToken string) *RateLimiter {
	sum := sha256.Sum256([]byte(accessToken))
	key := hex.EncodeToString(sum[:])

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.cache.Get(key); ok {
		return l
	}
	l := NewRateLimiter(p.rps, p.burst)
	p.cache.Add(key, l)
	return l
}

// Len returns the number of live limiters.
func (p *LimiterPool) Len() int {
	return p.cache.Len()
}
