package routes

import (
	"errors"
	"net/http"

	"docqa-service/internal/logger"
	"docqa-service/middleware"
	"docqa-service/services"
	"docqa-service/utils"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps session service errors onto the HTTP error envelope.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithNotFound(c, "Session not found")
	case errors.Is(err, services.ErrIndexing):
		logger.Error("Indexing failed", "request_id", middleware.GetRequestID(c), "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "indexing_error",
			"Failed to index uploaded documents", gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrGeneration):
		logger.Error("Generation failed", "request_id", middleware.GetRequestID(c), "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "generation_error",
			"Failed to generate an answer", gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", "request_id", middleware.GetRequestID(c), "error", err)
		utils.RespondWithInternalError(c, "Internal server error", nil)
	}
}
