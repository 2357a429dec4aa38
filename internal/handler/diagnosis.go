package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantdoctor/internal/model"
	"plantdoctor/internal/service"
)

// Diagnoser is the diagnosis surface used by the HTTP layer
type Diagnoser interface {
	Diagnose(ctx context.Context, req *model.DiagnoseRequest) (*model.DiagnoseResponse, error)
	DiagnoseStream(ctx context.Context, req *model.DiagnoseRequest, callback service.DiagnosisEventCallback) (*model.DiagnoseResponse, error)
	ExtractSymptoms(ctx context.Context, description string) (*model.ExtractResponse, error)
	CleanupCache(ctx context.Context) (int64, error)
	Feedback(ctx context.Context, req *model.FeedbackRequest) error
}

// DiagnosisHandler handles diagnosis-related HTTP requests
type DiagnosisHandler struct {
	diagnoser Diagnoser
}

// NewDiagnosisHandler creates a new diagnosis handler
func NewDiagnosisHandler(diagnoser Diagnoser) *DiagnosisHandler {
	return &DiagnosisHandler{
		diagnoser: diagnoser,
	}
}

// Diagnose handles POST /api/v1/diagnose
func (h *DiagnosisHandler) Diagnose(c *gin.Context) {
	var req model.DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.diagnoser.Diagnose(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Diagnosis failed: ", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DiagnoseStream handles POST /api/v1/diagnose/stream - SSE streaming diagnosis
func (h *DiagnosisHandler) DiagnoseStream(c *gin.Context) {
	var req model.DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{
		"has_image":  req.ImageBase64 != "" || req.ImageURL != "",
		"plant_type": req.PlantType,
	})
	flusher.Flush()

	response, err := h.diagnoser.DiagnoseStream(c.Request.Context(), &req, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return c.Request.Context().Err()
	})

	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error(), "status": statusFor(err)})
		flusher.Flush()
		return
	}

	sendSSE(c, "result", response)
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// ExtractSymptoms handles POST /api/v1/symptoms/extract
func (h *DiagnosisHandler) ExtractSymptoms(c *gin.Context) {
	var req model.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.diagnoser.ExtractSymptoms(c.Request.Context(), req.Description)
	if err != nil {
		respondError(c, "Extraction failed: ", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CleanupCache handles POST /api/v1/cache/cleanup
func (h *DiagnosisHandler) CleanupCache(c *gin.Context) {
	deleted, err := h.diagnoser.CleanupCache(c.Request.Context())
	if err != nil {
		respondError(c, "Cleanup failed: ", err)
		return
	}

	c.JSON(http.StatusOK, model.CleanupResponse{Deleted: deleted})
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
