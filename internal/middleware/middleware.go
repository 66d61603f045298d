package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/pkg/ids"
	"github.com/yigit/unihousing/internal/pkg/metrics"
)

// RequestIDKey is the gin context key of the request id.
const RequestIDKey = "requestID"

// RequestID tags every request with an id, reusing X-Request-ID when the client sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = ids.NewEntityID()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs every request once it completes
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("clientIP", c.ClientIP()).
			Str("requestId", c.GetString(RequestIDKey)).
			Msg("HTTP request")
	}
}

// Metrics records request counts and latency per route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.HTTPStarted()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		done(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}
