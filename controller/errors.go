package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// StatusClientClosedRequest is returned when the caller went away before the
// work started.
const StatusClientClosedRequest = 499

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrEmptyChunkSet):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrVectorDimension):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrEmbeddingService), errors.Is(err, models.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error body for err. Client errors echo the
// cause; server errors use summary and carry the cause in details.
func respondError(ctx *gin.Context, summary string, err error) {
	status := statusFor(err)
	body := models.ErrorResponse{Error: summary, Details: err.Error()}
	if status < http.StatusInternalServerError {
		body = models.ErrorResponse{Error: err.Error()}
	} else {
		logger.Error("SERVER: %s: %v", summary, err)
	}
	ctx.AbortWithStatusJSON(status, body)
}
