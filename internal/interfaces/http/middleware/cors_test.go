package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsHandler(config CORSConfig) http.Handler {
	return CORS(config)(okHandler())
}

func TestCORS_PreflightReturnsNoContent(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.complisense.io"}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/assessments", nil)
	req.Header.Set("Origin", "https://app.complisense.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.complisense.io", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_AllowsListedOrigin(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.complisense.io"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	req.Header.Set("Origin", "https://app.complisense.io")

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.complisense.io", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID")
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORS_UnlistedOriginGetsNoHeaders(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.complisense.io"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, req)

	// The request still reaches the handler; the browser enforces the block.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginPassesThrough(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.complisense.io"}

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardSubdomainMatching(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*.complisense.io"}
	config.AllowWildcard = true

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	req.Header.Set("Origin", "https://staging.complisense.io")

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, req)

	assert.Equal(t, "https://staging.complisense.io", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowAllWithoutCredentials(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_AllowAllWithCredentialsEchoesOrigin(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}
	config.AllowCredentials = true

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	req.Header.Set("Origin", "https://app.complisense.io")

	rec := httptest.NewRecorder()
	corsHandler(config).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.complisense.io", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
