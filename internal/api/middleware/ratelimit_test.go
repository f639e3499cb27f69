package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/sub_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Time) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis unavailable")
}

func rateLimitedRouter(limiter ratelimit.Limiter, perWindow int, userID int64) *gin.Engine {
	router := gin.New()
	if userID > 0 {
		router.Use(func(c *gin.Context) {
			c.Set(UserIDKey, userID)
			c.Next()
		})
	}
	router.Use(RateLimit(limiter, "chatbot", perWindow))
	router.POST("/chatbot", func(c *gin.Context) {
		response.Success(c, nil)
	})
	return router
}

func hit(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/chatbot", nil))
	return w
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	router := rateLimitedRouter(ratelimit.NewMemoryLimiter(time.Minute), 2, 42)

	for i := 0; i < 2; i++ {
		w := hit(router)
		assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)
	}

	w := hit(router)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeRateLimited, parseResponse(t, w).Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_KeysPerUser(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(time.Minute)
	alice := rateLimitedRouter(limiter, 1, 1)
	bob := rateLimitedRouter(limiter, 1, 2)

	assert.Equal(t, response.CodeSuccess, parseResponse(t, hit(alice)).Code)
	assert.Equal(t, response.CodeRateLimited, parseResponse(t, hit(alice)).Code)
	assert.Equal(t, response.CodeSuccess, parseResponse(t, hit(bob)).Code)
}

func TestRateLimit_AnonymousByIP(t *testing.T) {
	router := rateLimitedRouter(ratelimit.NewMemoryLimiter(time.Minute), 1, 0)

	assert.Equal(t, response.CodeSuccess, parseResponse(t, hit(router)).Code)
	assert.Equal(t, response.CodeRateLimited, parseResponse(t, hit(router)).Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	router := rateLimitedRouter(brokenLimiter{}, 1, 42)

	for i := 0; i < 3; i++ {
		assert.Equal(t, response.CodeSuccess, parseResponse(t, hit(router)).Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	router := rateLimitedRouter(nil, 1, 42)
	for i := 0; i < 3; i++ {
		assert.Equal(t, response.CodeSuccess, parseResponse(t, hit(router)).Code)
	}

	router = rateLimitedRouter(ratelimit.NewMemoryLimiter(time.Minute), 0, 42)
	for i := 0; i < 3; i++ {
		assert.Equal(t, response.CodeSuccess, parseResponse(t, hit(router)).Code)
	}
}
