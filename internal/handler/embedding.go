package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plantdoctor/internal/model"
)

// maxBackfillLimit caps the limit query parameter
const maxBackfillLimit = 1000

// Backfiller fills missing cache embeddings
type Backfiller interface {
	Run(ctx context.Context, limit int) (*model.EmbeddingBackfillResponse, error)
}

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	backfill Backfiller
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(backfill Backfiller) *EmbeddingHandler {
	return &EmbeddingHandler{
		backfill: backfill,
	}
}

// Backfill handles POST /api/v1/cache/embeddings?limit=N
func (h *EmbeddingHandler) Backfill(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxBackfillLimit)
	}

	response, err := h.backfill.Run(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "Embedding backfill failed: ", err)
		return
	}

	if len(response.Errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
