package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantdoctor/internal/apperrors"
	"plantdoctor/internal/logging"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput),
		errors.Is(err, apperrors.ErrInvalidImage),
		errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrInvalidResponse),
		errors.Is(err, apperrors.ErrDiagnosisFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are sanitized.
func respondError(c *gin.Context, prefix string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = logging.SanitizeError(err)
	}
	c.JSON(status, gin.H{"error": prefix + msg})
}
