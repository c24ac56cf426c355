package routes

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"docqa-service/internal/config"
	"docqa-service/internal/logger"
	"docqa-service/models"
	"docqa-service/services"
	"docqa-service/utils"

	"github.com/gin-gonic/gin"
)

type askRequest struct {
	Question     string  `json:"question"`
	CustomPrompt *string `json:"custom_prompt"`
}

type promptRequest struct {
	CustomPrompt *string `json:"custom_prompt"`
}

// SetupSessionRoutes registers the session lifecycle endpoints.
func SetupSessionRoutes(router *gin.Engine, cfg *config.Config, sessions *services.SessionService, exporter *services.ExportService) {
	upload := handleUpload(cfg, sessions)
	ask := handleAsk(sessions)

	router.POST("/upload", upload)
	router.POST("/ask/:id", ask)

	group := router.Group("/sessions")
	group.POST("", upload)
	group.GET("", handleListSessions(sessions))
	group.GET("/export", handleExport(exporter))
	group.GET("/:id", handleGetSession(sessions))
	group.DELETE("/:id", handleDeleteSession(sessions))
	group.POST("/:id/ask", ask)
	group.POST("/:id/prompt", handleSetPrompt(sessions))
}

func handleUpload(cfg *config.Config, sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondWithTooLarge(c, "Upload exceeds maximum size", cfg.MaxFileSize)
				return
			}
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", "Expected a multipart form with PDF files", nil)
			return
		}
		defer c.Request.MultipartForm.RemoveAll()

		headers := append(c.Request.MultipartForm.File["files"], c.Request.MultipartForm.File["file"]...)
		if len(headers) == 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", "No files provided", nil)
			return
		}

		files := make([]models.UploadedFile, 0, len(headers))
		for _, h := range headers {
			content, err := readPart(h)
			if err != nil {
				utils.RespondWithError(c, http.StatusBadRequest, "invalid_input",
					fmt.Sprintf("Cannot read %s", h.Filename), nil)
				return
			}
			files = append(files, models.UploadedFile{Filename: h.Filename, Content: content})
		}

		sess, err := sessions.CreateSession(c.Request.Context(), files)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": sess.ID,
			"message":    fmt.Sprintf("Indexed %d file(s)", sess.FileCount),
		})
	}
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func handleAsk(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		opts := services.AskOptions{}
		if req.CustomPrompt != nil {
			opts.Prompt = *req.CustomPrompt
		}

		answer, err := sessions.Ask(c.Request.Context(), c.Param("id"), req.Question, opts)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"content": answer.Content})
	}
}

func handleSetPrompt(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req promptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		prompt := ""
		if req.CustomPrompt != nil {
			prompt = *req.CustomPrompt
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		if _, err := sessions.SetPrompt(ctx, c.Param("id"), prompt); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "prompt updated"})
	}
}

func handleGetSession(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		sess, err := sessions.GetMetadata(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

func handleListSessions(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		list, err := sessions.ListSessions(ctx)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if list == nil {
			list = []*models.Session{}
		}
		c.JSON(http.StatusOK, gin.H{"sessions": list, "total": len(list)})
	}
}

func handleDeleteSession(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := sessions.DeleteSession(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		resp := gin.H{"message": "session deleted", "cleanup": result}
		if result.Err != nil {
			logger.Warn("Session deleted with pending cleanup",
				"session_id", c.Param("id"),
				"collection", result.Collection,
				"retried", result.Retried,
				"error", result.Err,
			)
			resp["cleanup_error"] = result.Err.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleExport(exporter *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.DefaultQuery("format", services.ExportFormatExcel)
		data, contentType, filename, err := exporter.Export(c.Request.Context(), format)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Data(http.StatusOK, contentType, data)
	}
}
