package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default rate limit per minute
	DefaultRateLimit = 120
	// DefaultBurstSize is the default burst size
	DefaultBurstSize = 20
	// CleanupInterval is the interval for sweeping idle limiters
	CleanupInterval = 5 * time.Minute
	// LimiterTTL is how long an idle limiter is kept
	LimiterTTL = 10 * time.Minute
)

// RateLimiter keeps one token bucket per user. Buckets idle for longer than
// the TTL are evicted by a background sweep.
type RateLimiter struct {
	limiters          map[int32]*limiterEntry
	mu                sync.Mutex
	requestsPerMinute int
	rateLimit         rate.Limit
	burstSize         int
	ttl               time.Duration
	now               func() time.Time
	stopCh            chan struct{}
	stopOnce          sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new RateLimiter with default settings
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimit, DefaultBurstSize)
}

// NewRateLimiterWithConfig creates a RateLimiter with custom configuration
func NewRateLimiterWithConfig(requestsPerMinute int, burstSize int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRateLimit
	}
	if burstSize <= 0 {
		burstSize = DefaultBurstSize
	}
	rl := &RateLimiter{
		limiters:          make(map[int32]*limiterEntry),
		requestsPerMinute: requestsPerMinute,
		rateLimit:         rate.Limit(float64(requestsPerMinute) / 60.0),
		burstSize:         burstSize,
		ttl:               LimiterTTL,
		now:               time.Now,
		stopCh:            make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether the user may make a request now
func (r *RateLimiter) Allow(userID int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, exists := r.limiters[userID]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.rateLimit, r.burstSize)}
		r.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// State returns the tokens left and when the bucket will be full again
func (r *RateLimiter) State(userID int32) (remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, exists := r.limiters[userID]
	if !exists {
		return r.burstSize, now
	}

	tokens := int(entry.limiter.TokensAt(now))
	if tokens < 0 {
		tokens = 0
	}
	missing := float64(r.burstSize - tokens)
	return tokens, now.Add(time.Duration(missing / float64(r.rateLimit) * float64(time.Second)))
}

// Len returns the number of tracked users
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// sweep evicts limiters idle since before now minus the TTL
func (r *RateLimiter) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for userID, entry := range r.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(r.limiters, userID)
			evicted++
		}
	}
	return evicted
}

func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("Swept idle rate limiters")
			}
		case <-r.stopCh:
			return
		}
	}
}

// Stop stops the sweep goroutine
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RateLimitMiddleware limits authenticated requests per user. It must run
// after Authenticate; anonymous requests pass through.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := GetUserID(c)
			if userID == 0 {
				return next(c)
			}

			allowed := rl.Allow(userID)
			remaining, resetTime := rl.State(userID)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMinute))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				retryAfter := int(time.Until(resetTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().
					Int32("user_id", userID).
					Int("retry_after", retryAfter).
					Msg("Rate limit exceeded")

				return rateLimitError(c, retryAfter)
			}

			return next(c)
		}
	}
}
