package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/server/models"
	"github.com/docuchat/server/services"
)

// RAGController handles the HTTP requests for the question and upload
// endpoints. It depends on the service layer for the actual pipeline.
type RAGController struct {
	ragService    *services.RAGService
	ingestService *services.IngestService
}

// NewRAGController is called from main.go to inject the service dependencies.
func NewRAGController(ragService *services.RAGService, ingestService *services.IngestService) *RAGController {
	return &RAGController{
		ragService:    ragService,
		ingestService: ingestService,
	}
}

// UserID pulls the caller's identity set by the authentication
// collaborator. Authentication itself lives outside this service.
func UserID(ctx *gin.Context) string {
	return ctx.GetHeader("X-User-ID")
}

// Ask is the Gin handler for POST /api/v1/ask. It streams answer
// fragments as plain text as they arrive from the generator.
func (c *RAGController) Ask(ctx *gin.Context) {
	userID := UserID(ctx)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	var req models.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	fragments, err := c.ragService.Ask(ctx.Request.Context(), userID, req.Question, req.ChatHistory)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuestion) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Question cannot be empty."})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate AI response"})
		return
	}

	ctx.Header("Content-Type", "text/plain; charset=utf-8")
	ctx.Status(http.StatusOK)
	ctx.Stream(func(w io.Writer) bool {
		frag, ok := <-fragments
		if !ok {
			return false
		}
		_, _ = io.WriteString(w, frag)
		return true
	})
}

// Upload is the Gin handler for POST /api/v1/upload. It accepts a
// multipart batch and streams the ingestion progress feed line by line.
func (c *RAGController) Upload(ctx *gin.Context) {
	userID := UserID(ctx)
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	// Read the whole batch into memory before streaming begins, so a
	// slow client cannot stall the multipart reader mid-pipeline.
	files := make([]models.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read " + fh.Filename})
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read " + fh.Filename})
			return
		}
		files = append(files, models.UploadFile{Filename: fh.Filename, Content: content})
	}

	progress := c.ingestService.Ingest(ctx.Request.Context(), userID, files)

	ctx.Header("Content-Type", "text/plain; charset=utf-8")
	ctx.Status(http.StatusOK)
	ctx.Stream(func(w io.Writer) bool {
		line, ok := <-progress
		if !ok {
			return false
		}
		_, _ = io.WriteString(w, line+"\n")
		return true
	})
}
