package routes

import (
	"net/http"
	"time"

	"docqa-service/internal/logger"
	"docqa-service/services"
	"docqa-service/utils"

	"github.com/gin-gonic/gin"
)

// SetupHealthRoutes registers /health and its /info alias.
func SetupHealthRoutes(router *gin.Engine, sessions *services.SessionService) {
	h := func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		active, err := sessions.ActiveSessions(ctx)
		if err != nil {
			logger.Warn("Health check could not count sessions", "error", err)
			utils.RespondWithUnavailable(c, "Session store unavailable", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"active_sessions": active,
			"models_loaded":   true,
			"models":          sessions.ModelsLoaded(),
			"timestamp":       time.Now().UTC(),
		})
	}
	router.GET("/health", h)
	router.GET("/info", h)
}
