package server

import (
	"time"

	"cogchat/internal/logger"

	"github.com/gin-gonic/gin"
)

// requestLogger logs every request with its status and latency
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log := logger.Component("http")
		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start))

		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			event.Str("error", errs)
		}

		event.Msg("request")
	}
}
