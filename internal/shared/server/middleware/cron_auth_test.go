package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/shared/telemetry"
)

func newCronRouter(secret string, called *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/sync/curiosities", WithJob("curiosities"), CronAuth(secret), func(c *gin.Context) {
		*called++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestCronAuth(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	cases := []struct {
		name   string
		secret string
		header string
		query  string
		want   int
	}{
		{name: "bearer header", secret: "s3cret", header: "Bearer s3cret", want: http.StatusOK},
		{name: "token query", secret: "s3cret", query: "?token=s3cret", want: http.StatusOK},
		{name: "header wins over query", secret: "s3cret", header: "Bearer wrong", query: "?token=s3cret", want: http.StatusUnauthorized},
		{name: "non-bearer header falls back to query", secret: "s3cret", header: "Basic abc", query: "?token=s3cret", want: http.StatusOK},
		{name: "wrong token", secret: "s3cret", query: "?token=nope", want: http.StatusUnauthorized},
		{name: "missing credential", secret: "s3cret", want: http.StatusUnauthorized},
		{name: "empty secret rejects all", secret: "", query: "?token=", want: http.StatusUnauthorized},
		{name: "empty secret rejects bearer", secret: "", header: "Bearer ", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := 0
			r := newCronRouter(tc.secret, &called)
			req := httptest.NewRequest(http.MethodGet, "/api/sync/curiosities"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
			if tc.want == http.StatusUnauthorized {
				if called != 0 {
					t.Fatalf("handler must not run when unauthorized")
				}
				var body map[string]any
				if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body["ok"] != false || body["error"] != "unauthorized" {
					t.Fatalf("unexpected body: %v", body)
				}
			}
		})
	}
}
