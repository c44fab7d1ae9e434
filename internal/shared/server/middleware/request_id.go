package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "requestId"
	jobKey       = "syncJob"
)

// RequestID attaches a request ID to context and response header. A caller
// supplied X-Request-Id is kept so scheduler logs can be correlated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

// RequestIDFromContext fetches the request ID stored by RequestID middleware.
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(requestIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// WithJob tags the request with the sync job it triggers.
func WithJob(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(jobKey, name)
		c.Next()
	}
}

// JobFromContext returns the job tagged by WithJob.
func JobFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(jobKey)
}
