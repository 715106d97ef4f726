package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	service := deps.Service
	if service == "" {
		service = "jobgen-api-service"
	}

	checks := map[string]handler.HealthChecker{}
	if deps.Database != nil {
		checks["database"] = deps.Database
	}
	if deps.Broker != nil {
		checks["rabbitmq"] = deps.Broker
	}

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for name, check := range checks {
			if err := check.HealthCheck(ctx); err != nil {
				deps.Logger.Warn("Health check failed",
					slog.String("component", name),
					slog.Any("error", err),
				)
				components[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "up"
		}

		health := "healthy"
		if status != http.StatusOK {
			health = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":     health,
			"service":    service,
			"components": components,
		})
	})

	generation := handler.NewGenerationHandler(deps)

	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/cleanup - Expire stale jobs, optionally for one world
		v1.POST("/cleanup", generation.Cleanup)

		worlds := v1.Group("/worlds/:world_id")
		{
			// POST /api/v1/worlds/:world_id/populate - Queue a full population
			worlds.POST("/populate", generation.Populate)

			// POST /api/v1/worlds/:world_id/refresh - Queue a top-up of stale airports
			worlds.POST("/refresh", generation.Refresh)

			// GET /api/v1/worlds/:world_id/runs - Page through the run log
			worlds.GET("/runs", generation.ListRuns)

			// GET /api/v1/worlds/:world_id/stats - Aggregated run statistics
			worlds.GET("/stats", generation.GetStats)
		}
	}

	return r
}
