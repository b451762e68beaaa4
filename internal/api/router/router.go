package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jitenkr2030/VisualVerse-sub004/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "render-service",
		})
	})

	renderHandler := handler.NewRenderHandler(deps)

	v1 := r.Group("/api/v1")
	{
		render := v1.Group("/render")
		{
			jobs := render.Group("/jobs")
			{
				// POST /api/v1/render/jobs - Submit a render job
				jobs.POST("", renderHandler.SubmitJob)

				// GET /api/v1/render/jobs - List tracked jobs
				jobs.GET("", renderHandler.ListJobs)

				// GET /api/v1/render/jobs/:job_id - Get job status
				jobs.GET("/:job_id", renderHandler.GetJob)

				// GET /api/v1/render/jobs/:job_id/wait - Block until terminal or timeout
				jobs.GET("/:job_id/wait", renderHandler.WaitJob)

				// POST /api/v1/render/jobs/:job_id/cancel - Cancel a job
				jobs.POST("/:job_id/cancel", renderHandler.CancelJob)
			}

			// GET /api/v1/render/queue - Queue counts and concurrency bound
			render.GET("/queue", renderHandler.QueueStatus)

			// POST /api/v1/render/cleanup - Purge old terminal jobs
			render.POST("/cleanup", renderHandler.Cleanup)

			// POST /api/v1/render/sync - Blocking, unscheduled render
			render.POST("/sync", renderHandler.RenderSync)
		}
	}

	return r
}
