package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenBucketLimiter_AllowsBurstThenDenies(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("client-a")
		assert.True(t, allowed, "request %d within burst should be allowed", i+1)
	}

	allowed, info := limiter.Allow("client-a")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 3, info.Limit)
}

func TestTokenBucketLimiter_RefillsOverTime(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 1, 0)

	allowed, _ := limiter.Allow("client-a")
	require.True(t, allowed)

	allowed, _ = limiter.Allow("client-a")
	require.False(t, allowed)

	// 100 tokens/s refills one token within 10ms.
	time.Sleep(50 * time.Millisecond)

	allowed, _ = limiter.Allow("client-a")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_TracksKeysIndependently(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)

	allowed, _ := limiter.Allow("client-a")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("client-a")
	require.False(t, allowed)

	allowed, _ = limiter.Allow("client-b")
	assert.True(t, allowed)
	assert.Equal(t, 2, limiter.BucketCount())
}

func TestRateLimit_SetsHeaders(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.BurstSize = 5
	limiter := NewTokenBucketLimiter(config.RequestsPerSecond, config.BurstSize, 0)

	handler := RateLimit(limiter, config)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_Returns429WhenExceeded(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.RequestsPerSecond = 0.001
	config.BurstSize = 1
	limiter := NewTokenBucketLimiter(config.RequestsPerSecond, config.BurstSize, 0)

	handler := RateLimit(limiter, config)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_SkipsConfiguredPaths(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.RequestsPerSecond = 0.001
	config.BurstSize = 1
	limiter := NewTokenBucketLimiter(config.RequestsPerSecond, config.BurstSize, 0)

	handler := RateLimit(limiter, config)(okHandler())

	// Exhaust the bucket on an API path.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Health probes bypass the limiter entirely.
	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.RequestsPerSecond = 0.001
	config.BurstSize = 1
	config.KeyFunc = func(r *http.Request) string {
		return r.Header.Get("X-Client")
	}
	limiter := NewTokenBucketLimiter(config.RequestsPerSecond, config.BurstSize, 0)

	handler := RateLimit(limiter, config)(okHandler())

	reqA := httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil)
	reqA.Header.Set("X-Client", "alpha")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, reqA)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, reqA)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client keeps its own bucket.
	reqB := httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil)
	reqB.Header.Set("X-Client", "beta")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, reqB)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRateLimitMiddleware_EnforcesLimit(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.RequestsPerSecond = 0.001
	config.BurstSize = 2
	config.CleanupInterval = 0

	mw := NewRateLimitMiddleware(config)
	defer mw.Stop()

	handler := mw.Handler(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
