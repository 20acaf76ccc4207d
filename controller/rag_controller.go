package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github/itish2003/docchat/models"
	"github/itish2003/docchat/services"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 32 << 20

// RAGController handles the HTTP requests for our API. It depends on the
// RAGService to perform the actual business logic.
type RAGController struct {
	ragService services.RAGService
}

// NewRAGController creates a RAGController around service.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{
		ragService: service,
	}
}

// Ingest is the handler for POST /api/v1/ingest. It accepts a JSON
// document or a multipart upload in the "file" field.
func (c *RAGController) Ingest(ctx *gin.Context) {
	if err := ctx.Request.Context().Err(); err != nil {
		respondError(ctx, "Request was aborted", err)
		return
	}

	var (
		result *services.IngestResult
		title  string
		err    error
	)
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		title, result, err = c.ingestUpload(ctx)
	} else {
		var req models.IngestRequest
		if bindErr := ctx.ShouldBindJSON(&req); bindErr != nil {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + bindErr.Error()})
			return
		}
		title = strings.TrimSpace(req.Title)
		result, err = c.ragService.Ingest(ctx.Request.Context(), req)
	}
	if err != nil {
		respondError(ctx, "Failed to ingest document", err)
		return
	}

	ctx.JSON(http.StatusOK, models.IngestResponse{
		Success:     true,
		DocumentID:  result.DocumentID,
		ChunksCount: result.ChunkCount,
		Message:     fmt.Sprintf("Successfully ingested document \"%s\" with %d chunks", title, result.ChunkCount),
	})
}

func (c *RAGController) ingestUpload(ctx *gin.Context) (string, *services.IngestResult, error) {
	header, err := ctx.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: missing file upload: %v", models.ErrInvalidInput, err)
	}
	if header.Size > maxUploadBytes {
		return "", nil, fmt.Errorf("%w: file exceeds %d bytes", models.ErrInvalidInput, maxUploadBytes)
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("reading upload: %w", err)
	}
	result, err := c.ragService.IngestFile(ctx.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	return header.Filename, result, err
}

// Chat is the handler for POST /api/v1/chat. With ?stream=true the answer
// is written word by word as `0:"word "` lines followed by a final
// `1:{"type":"complete",...}` line carrying the citations.
func (c *RAGController) Chat(ctx *gin.Context) {
	if err := ctx.Request.Context().Err(); err != nil {
		respondError(ctx, "Request was aborted", err)
		return
	}

	var req models.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.Chat(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, "Failed to process chat request", err)
		return
	}

	if !wantsStream(ctx) {
		ctx.JSON(http.StatusOK, response)
		return
	}
	c.streamAnswer(ctx, response)
}

type streamComplete struct {
	Type      string            `json:"type"`
	Citations []models.Citation `json:"citations"`
	ChatID    string            `json:"chatId,omitempty"`
}

func (c *RAGController) streamAnswer(ctx *gin.Context, response *models.ChatResponse) {
	ctx.Header("Content-Type", "text/plain; charset=utf-8")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Status(http.StatusOK)

	enc := json.NewEncoder(ctx.Writer)
	enc.SetEscapeHTML(false)
	done := ctx.Request.Context().Done()

	for _, word := range strings.Split(response.Answer, " ") {
		select {
		case <-done:
			return
		default:
		}
		if _, err := io.WriteString(ctx.Writer, "0:"); err != nil {
			return
		}
		if err := enc.Encode(word + " "); err != nil {
			return
		}
		ctx.Writer.Flush()
	}

	if _, err := io.WriteString(ctx.Writer, "1:"); err != nil {
		return
	}
	_ = enc.Encode(streamComplete{Type: "complete", Citations: response.Citations, ChatID: response.ChatID})
	ctx.Writer.Flush()
}

func wantsStream(ctx *gin.Context) bool {
	switch strings.ToLower(ctx.Query("stream")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// DebugRetrieval is the handler for POST /api/v1/retrieval/debug.
func (c *RAGController) DebugRetrieval(ctx *gin.Context) {
	var req models.DebugRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	diagnostics, err := c.ragService.DebugRetrieval(ctx.Request.Context(), req.Question)
	if err != nil {
		respondError(ctx, "Failed to run retrieval diagnostics", err)
		return
	}
	ctx.JSON(http.StatusOK, diagnostics)
}

// ListDocuments is the handler for GET /api/v1/documents.
func (c *RAGController) ListDocuments(ctx *gin.Context) {
	response, err := c.ragService.ListDocuments(ctx.Request.Context())
	if err != nil {
		respondError(ctx, "Failed to retrieve documents", err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// DeleteDocument is the handler for DELETE /api/v1/documents/:id.
func (c *RAGController) DeleteDocument(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.ragService.DeleteDocument(ctx.Request.Context(), id); err != nil {
		respondError(ctx, "Failed to delete document", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "documentId": id})
}
