package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps holds dependencies needed for API routes.
type Deps struct {
	Dashboard      Dashboard
	Logger         zerolog.Logger
	AllowedOrigins []string
	RefreshLimiter *RateLimiter // optional
}

// SetupRoutes registers all API routes with the Gin engine.
func SetupRoutes(r *gin.Engine, deps *Deps) {
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(deps.Logger))
	r.Use(MetricsMiddleware())

	if len(deps.AllowedOrigins) > 0 {
		r.Use(CORSMiddleware(deps.AllowedOrigins))
	}

	views := NewDashboardViews(deps.Dashboard, deps.Logger)

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	dashboard := r.Group("/api/dashboard")
	{
		dashboard.GET("/timeline", views.Timeline)
		dashboard.GET("/categories", views.Categories)
		dashboard.GET("/summary", views.Summary)
		dashboard.GET("/snapshots", views.Snapshots)
		dashboard.GET("/refresh-logs", views.RefreshLogs)

		refresh := []gin.HandlerFunc{views.Refresh}
		if deps.RefreshLimiter != nil {
			refresh = append([]gin.HandlerFunc{RateLimitMiddleware(deps.RefreshLimiter)}, refresh...)
		}
		dashboard.POST("/refresh", refresh...)
	}
}
