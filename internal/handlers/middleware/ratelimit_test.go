package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	newLimiter := func() *RateLimiter {
		rl := NewRateLimiter(1, 2, time.Minute)
		rl.now = func() time.Time { return now }
		return rl
	}

	t.Run("burst then refill", func(t *testing.T) {
		rl := newLimiter()

		require.True(t, rl.Allow("10.0.0.1"))
		require.True(t, rl.Allow("10.0.0.1"))
		require.False(t, rl.Allow("10.0.0.1"), "burst of 2 exhausted")
		require.True(t, rl.Allow("10.0.0.2"), "other ip has own bucket")

		now = now.Add(time.Second)
		require.True(t, rl.Allow("10.0.0.1"), "one token refilled after a second")
	})

	t.Run("idle visitors forgotten", func(t *testing.T) {
		rl := newLimiter()

		rl.Allow("10.0.0.1")
		now = now.Add(2 * time.Minute)
		rl.Allow("10.0.0.2")

		require.Len(t, rl.visitors, 1)
		require.Contains(t, rl.visitors, "10.0.0.2")
	})

	t.Run("middleware responds 429", func(t *testing.T) {
		rl := newLimiter()
		h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		codes := make([]int, 0, 3)
		for range 3 {
			r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			r.RemoteAddr = "192.0.2.7:5555"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			codes = append(codes, w.Code)
		}

		require.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	})
}
