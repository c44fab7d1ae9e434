package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/shared/metrics"
	"curiosity-sync/internal/shared/server/respond"
)

// ErrUnauthorized is returned when a trigger presents no valid credential.
var ErrUnauthorized = errors.New("unauthorized")

// CronAuth guards scheduler-triggered endpoints with a shared secret. The
// credential is read from "Authorization: Bearer <secret>" first and from the
// "token" query parameter otherwise. An empty configured secret rejects every
// request.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := CheckCronToken(secret, c.Request); err != nil {
			metrics.IncTriggerRejected(JobFromContext(c))
			respond.Error(c, http.StatusUnauthorized, "unauthorized", ErrUnauthorized.Error())
			return
		}
		c.Next()
	}
}

// CheckCronToken validates the request credential against secret.
func CheckCronToken(secret string, r *http.Request) error {
	if secret == "" || r == nil {
		return ErrUnauthorized
	}
	token := ""
	if hdr := r.Header.Get("Authorization"); strings.HasPrefix(hdr, "Bearer ") {
		token = hdr[len("Bearer "):]
	} else if r.URL != nil {
		token = r.URL.Query().Get("token")
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
