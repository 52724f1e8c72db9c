package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"forumpipe/internal/config"
)

func newRouter(ctx context.Context, cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(ctx, cfg))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_LimitsPerClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRouter(ctx, config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)

	w := hit(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2").Code, "other clients keep their own budget")
}

func TestMiddleware_Disabled(t *testing.T) {
	r := newRouter(context.Background(), config.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1})
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(config.RateLimitConfig{Enabled: true, RPS: 3})
	assert.Equal(t, 3.0, cfg.RPS)
	assert.Equal(t, 20, cfg.Burst)
	assert.Equal(t, DefaultConfig().MaxAge, cfg.MaxAge)
}
