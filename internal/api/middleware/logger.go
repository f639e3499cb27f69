package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Logger 访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if id, ok := GetUserID(c); ok {
			fields["user_id"] = id
		}

		entry := log.WithFields(fields)
		if len(c.Errors) > 0 {
			entry.Warn("http: " + c.Errors.String())
			return
		}
		entry.Info("http: request")
	}
}
