package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yinkev/Americano-sub009/internal/config"
	"github.com/yinkev/Americano-sub009/internal/middleware"
	"github.com/yinkev/Americano-sub009/pkg/monitoring"
	"github.com/yinkev/Americano-sub009/pkg/security"
	"github.com/yinkev/Americano-sub009/pkg/tracing"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.PATCH("/profile", c.auth.UpdateProfile)

		// Catalog
		authGroup.POST("/courses", c.catalog.CreateCourse)
		authGroup.GET("/courses", c.catalog.ListCourses)
		authGroup.POST("/objectives", c.catalog.CreateObjective)
		authGroup.GET("/objectives", c.catalog.ListObjectives)
		authGroup.GET("/objectives/:id", c.catalog.GetObjective)
		authGroup.GET("/objectives/:id/reviews", c.performance.ListObjectiveReviews)

		// Reviews and performance
		authGroup.POST("/reviews", c.performance.RecordReview)
		authGroup.GET("/performance/weak-areas", c.performance.GetWeakAreas)
		authGroup.GET("/performance/daily", c.performance.GetDailyMetrics)
		authGroup.POST("/performance/recalculate", c.performance.Recalculate)

		// Missions
		authGroup.POST("/missions/generate", c.mission.Generate)
		authGroup.GET("/missions/preview", c.mission.Preview)
		authGroup.GET("/missions/today", c.mission.GetToday)
		authGroup.GET("/missions/:id", c.mission.Get)
		authGroup.POST("/missions/:id/regenerate", c.mission.Regenerate)
		authGroup.POST("/missions/:id/start", c.mission.Start)
		authGroup.POST("/missions/:id/skip", c.mission.Skip)
		authGroup.PATCH("/missions/:id/objectives/:objectiveId", c.mission.CompleteObjective)
	}
}
