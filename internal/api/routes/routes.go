package routes

import (
	"github.com/mcs-service/mcs_service/internal/api/handlers"
	"github.com/mcs-service/mcs_service/internal/api/middleware"
	"github.com/mcs-service/mcs_service/internal/infrastructure/di"
	"github.com/mcs-service/mcs_service/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every handler the router mounts
type Handlers struct {
	Health    *handlers.HealthHandler
	Portfolio *handlers.PortfolioHandlers
	Score     *handlers.ScoreHandlers
}

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	// Global middleware - tracing first so every later span has a parent
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())

	scoreHandlers := handlers.NewScoreHandlers(container.Pipeline, container.Logger)
	if container.ScoreRepo != nil {
		scoreHandlers.WithHistory(container.ScoreRepo)
	}
	if container.ScoreStore != nil {
		scoreHandlers.WithLatest(container.ScoreStore)
	}

	Register(router, Handlers{
		Health:    handlers.NewHealthHandler(container.Health),
		Portfolio: handlers.NewPortfolioHandlers(container.Aggregator, container.Logger),
		Score:     scoreHandlers,
	}, middleware.RateLimit(container.Config.Server.RateLimitPerMin))

	return router
}

// Register mounts the routes; apiMiddleware applies to /api/v1 only
func Register(router *gin.Engine, h Handlers, apiMiddleware ...gin.HandlerFunc) {
	router.GET("/health", h.Health.Health)
	router.GET("/live", h.Health.Live)
	router.GET("/version", h.Health.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", apiMiddleware...)
	{
		v1.GET("/platforms/status", h.Portfolio.PlatformStatus)

		portfolio := v1.Group("/portfolio")
		{
			portfolio.GET("/:userId", h.Portfolio.GetPortfolio)
			portfolio.DELETE("/:userId/cache", h.Portfolio.InvalidateCache)
		}

		score := v1.Group("/score")
		{
			score.POST("/batch", h.Score.BatchScore)
			score.GET("/:userId", h.Score.GetScore)
			score.GET("/:userId/history", h.Score.GetHistory)
			score.GET("/:userId/latest", h.Score.GetLatest)
		}
	}
}
