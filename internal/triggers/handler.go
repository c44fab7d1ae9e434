// Package triggers exposes each sync job as an HTTP endpoint for the external
// scheduler or a manual call.
package triggers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"curiosity-sync/internal/etl"
	"curiosity-sync/internal/jobs"
	"curiosity-sync/internal/shared/server/middleware"
	"curiosity-sync/internal/shared/server/respond"
)

// JobRunner runs a configured job. *etl.Runner satisfies it.
type JobRunner interface {
	Run(ctx context.Context, job etl.Job) etl.Result
}

// Route binds a URL segment under /sync to a job name.
type Route struct {
	Path string
	Job  string
}

// Routes lists the trigger endpoints. "test" is the single-record smoke job.
var Routes = []Route{
	{Path: "curiosities", Job: jobs.NameCuriosities},
	{Path: "test", Job: jobs.NameCuriositiesTest},
	{Path: "hooks", Job: jobs.NameHooks},
	{Path: "extensions", Job: jobs.NameExtensions},
}

// Handler wires HTTP handlers to the runner.
type Handler struct {
	Runner     JobRunner
	Jobs       *jobs.Registry
	CronSecret string
}

// NewHandler constructs a Handler.
func NewHandler(runner JobRunner, registry *jobs.Registry, cronSecret string) *Handler {
	return &Handler{Runner: runner, Jobs: registry, CronSecret: cronSecret}
}

// RegisterRoutes attaches GET and POST /sync/<path> for every registered job.
// extra runs after the job is tagged and before authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, extra ...gin.HandlerFunc) {
	group := rg.Group("/sync")
	for _, route := range Routes {
		job, ok := h.Jobs.Lookup(route.Job)
		if !ok {
			continue
		}
		chain := []gin.HandlerFunc{middleware.WithJob(job.Name)}
		chain = append(chain, extra...)
		if job.RequireAuth {
			chain = append(chain, middleware.CronAuth(h.CronSecret))
		}
		chain = append(chain, h.run(job.Name))

		group.GET("/"+route.Path, chain...)
		group.POST("/"+route.Path, chain...)
	}
}

func (h *Handler) run(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Looked up per request so overrides applied after registration are seen.
		job, ok := h.Jobs.Lookup(name)
		if !ok {
			respond.Error(c, http.StatusNotFound, "not_found", "unknown job "+name)
			return
		}

		res := h.Runner.Run(c.Request.Context(), job)
		c.Set("syncWrote", res.Written)
		if !res.OK {
			respond.JSON(c, http.StatusInternalServerError, res.Payload())
			return
		}
		respond.OK(c, res.Payload())
	}
}
