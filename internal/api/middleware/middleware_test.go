package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func get(router *gin.Engine, remote, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSDefaultAdmitsLoopbackOnly(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name       string
		origin     string
		wantStatus int
		wantHeader bool
	}{
		{"localhost", "http://localhost:3000", http.StatusOK, true},
		{"loopback ip", "http://127.0.0.1:7070", http.StatusOK, true},
		{"remote site", "https://evil.example", http.StatusForbidden, false},
		{"no origin", "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "", tt.origin)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantHeader {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestCORSExplicitOrigins(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://example.com"}
	router := setupTestRouter(CORS(cfg))

	assert.Equal(t, http.StatusOK, get(router, "", "https://example.com").Code)
	assert.Equal(t, http.StatusForbidden, get(router, "", "http://localhost:3000").Code)
}

func TestIsLoopbackOrigin(t *testing.T) {
	assert.True(t, IsLoopbackOrigin("http://localhost"))
	assert.True(t, IsLoopbackOrigin("http://[::1]:8080"))
	assert.False(t, IsLoopbackOrigin("http://localhost.evil.com"))
	assert.False(t, IsLoopbackOrigin("::not a url"))
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", "").Code, "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.1:1234", "").Code)
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.2:1234", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.1:1234", "").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{}))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", "").Code)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(router, "192.168.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, get(router, "192.168.1.2:1234", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.168.1.3:1234", "").Code)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, 50, cfg.RequestsPerSecond)
	assert.Equal(t, 100, cfg.Burst)
	assert.Positive(t, cfg.IdleTTL)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
