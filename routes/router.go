package routes

import (
	"docqa-service/internal/config"
	"docqa-service/internal/telemetry"
	"docqa-service/middleware"
	"docqa-service/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RouterDeps are the collaborators the HTTP layer needs.
type RouterDeps struct {
	Sessions *services.SessionService
	Exporter *services.ExportService
	Metrics  *telemetry.Metrics // optional
	Redis    *redis.Client      // optional, enables shared rate limiting
}

// NewRouter builds the gin engine with middleware and all routes attached.
func NewRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
	if cfg.GinMode == gin.ReleaseMode || cfg.GinMode == gin.TestMode {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.OTelEnabled {
		router.Use(middleware.TracingMiddleware(cfg.OTelServiceName))
		router.Use(middleware.EnrichTrace())
	}
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	if cfg.RateLimitEnabled {
		if deps.Redis != nil {
			router.Use(middleware.RateLimitMiddleware(deps.Redis, cfg))
		} else {
			router.Use(middleware.LocalRateLimit(cfg))
		}
	}

	exporter := deps.Exporter
	if exporter == nil {
		exporter = services.NewExportService(deps.Sessions)
	}

	SetupHealthRoutes(router, deps.Sessions)
	SetupSessionRoutes(router, cfg, deps.Sessions, exporter)
	return router
}
