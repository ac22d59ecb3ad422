package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 5) // 10 per minute, burst of 5
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		if !rl.Allow(1) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if rl.Allow(1) {
		t.Error("Request 6 should be rate limited")
	}
}

func TestRateLimiter_DifferentUsers(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		rl.Allow(1)
	}
	if rl.Allow(1) {
		t.Error("User 1 should be rate limited")
	}
	for i := 0; i < 3; i++ {
		if !rl.Allow(2) {
			t.Errorf("User 2 request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 1) // one token per second
	defer rl.Stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	now = now.Add(1100 * time.Millisecond)
	assert.True(t, rl.Allow(1))
}

func TestRateLimiter_SweepEvictsIdle(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow(1)
	now = now.Add(LimiterTTL / 2)
	rl.Allow(2)
	now = now.Add(LimiterTTL/2 + time.Second)

	assert.Equal(t, 1, rl.sweep())
	assert.Equal(t, 1, rl.Len())

	remaining, _ := rl.State(1)
	assert.Equal(t, 3, remaining, "evicted user starts with a full bucket")
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter()
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 2)
	defer rl.Stop()
	e := echo.New()
	h := RateLimitMiddleware(rl)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func(userID int32) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
		if userID != 0 {
			req = req.WithContext(WithUserID(req.Context(), userID))
		}
		rec := httptest.NewRecorder()
		assert.NoError(t, h(e.NewContext(req, rec)))
		return rec
	}

	assert.Equal(t, http.StatusOK, call(9).Code)
	rec := call(9)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))

	rec = call(9)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), errorTypeRateLimit)

	// Anonymous requests are not limited here
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call(0).Code)
	}
}
