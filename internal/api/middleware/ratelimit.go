package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
)

// RateLimit 按用户（未登录按 IP）限流，限流器出错时放行
func RateLimit(limiter ratelimit.Limiter, scope string, perWindow int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || perWindow <= 0 {
			c.Next()
			return
		}

		key := scope + ":ip:" + c.ClientIP()
		if id, ok := GetUserID(c); ok {
			key = scope + ":user:" + strconv.FormatInt(id, 10)
		}

		res, err := limiter.Allow(c.Request.Context(), key, perWindow, time.Now())
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("ratelimit: check failed, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(perWindow))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(res.Reset).Seconds())+1))
			response.RateLimitError(c, "too many requests, please slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
