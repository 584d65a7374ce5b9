package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turbovets/taskhub/pkg/auth"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("key"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("key"), "request over the limit should be denied")
}

func TestRateLimiterIsolatesKeys(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	})

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "other keys have their own bucket")
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 60,
		WindowDuration:    time.Minute,
	})

	for rl.Allow("key") {
	}

	// 60/min refills one token per second
	rl.mu.RLock()
	b := rl.buckets["key"]
	rl.mu.RUnlock()
	b.mu.Lock()
	b.lastUpdate = time.Now().Add(-2 * time.Second)
	b.mu.Unlock()

	assert.True(t, rl.Allow("key"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
	})

	rl.Allow("stale")
	rl.mu.Lock()
	rl.buckets["stale"].lastUpdate = time.Now().Add(-3 * time.Minute)
	rl.mu.Unlock()

	rl.Cleanup()

	rl.mu.RLock()
	_, exists := rl.buckets["stale"]
	rl.mu.RUnlock()
	assert.False(t, exists)
}

func TestRateLimitMiddlewareHeaders(t *testing.T) {
	m := NewRateLimitMiddleware()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddlewareKeysByPrincipal(t *testing.T) {
	m := NewRateLimitMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	user := &auth.User{ID: "u-1", Role: auth.RoleViewer, IsActive: true}
	req = req.WithContext(WithPrincipal(req.Context(), user))

	key, limiter := m.pick(req)
	assert.Equal(t, "user:u-1", key)
	assert.Same(t, m.userLimiter, limiter)

	anon := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	key, limiter = m.pick(anon)
	assert.Equal(t, "ip:"+anon.RemoteAddr, key)
	assert.Same(t, m.anonymousLimiter, limiter)
}

func TestRateLimitMiddlewareRejects(t *testing.T) {
	m := &RateLimitMiddleware{
		userLimiter: NewRateLimiter(nil),
		anonymousLimiter: NewRateLimiter(&RateLimitConfig{
			RequestsPerWindow: 1,
			WindowDuration:    time.Minute,
		}),
	}
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}
