package middleware

import (
	"time"

	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" && c.Query("token") == "" {
			path = path + "?" + raw
		}

		c.Next()

		keyvals := []interface{}{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		}
		if userID := c.GetString("user_id"); userID != "" {
			keyvals = append(keyvals, "user_id", userID)
		}

		if c.Writer.Status() >= 500 {
			log.Error("HTTP request", keyvals...)
			return
		}
		log.Info("HTTP request", keyvals...)
	}
}
