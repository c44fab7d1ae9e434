package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"job":         JobFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if wrote, ok := c.Get("syncWrote"); ok {
			fields["wrote"] = wrote
		}
		telemetry.Info("request.complete", fields)
	}
}
