package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantdoctor/internal/model"
)

// FeedbackHandler handles feedback on cached diagnoses
type FeedbackHandler struct {
	diagnoser Diagnoser
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(diagnoser Diagnoser) *FeedbackHandler {
	return &FeedbackHandler{
		diagnoser: diagnoser,
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	validActions := map[string]bool{
		model.FeedbackHelpful:   true,
		model.FeedbackIncorrect: true,
	}

	if !validActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: helpful, incorrect"})
		return
	}

	if err := h.diagnoser.Feedback(c.Request.Context(), &req); err != nil {
		respondError(c, "Failed to record feedback: ", err)
		return
	}

	message := "Feedback recorded"
	if req.Action == model.FeedbackIncorrect {
		message = "Cached diagnosis removed"
	}
	c.JSON(http.StatusOK, model.FeedbackResponse{Success: true, Message: message})
}
