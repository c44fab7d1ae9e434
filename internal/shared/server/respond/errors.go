package respond

import (
	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/shared/telemetry"
)

// ErrorResponse is the failure body every trigger endpoint returns.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Error logs the failure and aborts with {ok:false, error}. code is a short
// machine-readable tag used only in logs.
func Error(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if job := c.GetString("syncJob"); job != "" {
		fields["job"] = job
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{OK: false, Error: message})
}
