package middleware

import (
	"time"

	"docqa-service/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
)

// CORSMiddleware applies the configured origin list. A "*" entry allows any
// origin, in which case credentials are not allowed.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsHeaders,
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AllowsAnyOrigin() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}
