package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/services/health"
	"curiosity-sync/internal/shared/metrics"
	"curiosity-sync/internal/shared/server/middleware"
	"curiosity-sync/internal/shared/server/respond"
	"curiosity-sync/internal/triggers"
)

// RouterDeps carries the collaborators the router mounts.
type RouterDeps struct {
	Triggers *triggers.Handler
	Health   *health.Service

	// TriggerRPS and TriggerBurst bound how often one client may start each
	// job. A non-positive rate disables the limit.
	TriggerRPS   float64
	TriggerBurst int
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if ok, _ := status["ok"].(bool); !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	if deps.Triggers != nil {
		var extra []gin.HandlerFunc
		if deps.TriggerRPS > 0 && deps.TriggerBurst > 0 {
			rule := middleware.RateLimitRule{Rate: deps.TriggerRPS, Burst: deps.TriggerBurst}
			rules := make(map[string]middleware.RateLimitRule, len(triggers.Routes))
			for _, route := range triggers.Routes {
				rules[route.Job] = rule
			}
			extra = append(extra, middleware.RateLimit(middleware.RateLimitConfig{Rules: rules}))
		}
		deps.Triggers.RegisterRoutes(api, extra...)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
