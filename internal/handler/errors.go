package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
)

// writeError maps a service error onto the response envelope. Anything
// unrecognised is logged and reported as fallback.
func writeError(c *gin.Context, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, response.ValidationError(ve.Message))
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, response.ValidationError(err.Error()))
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
	case errors.Is(err, domain.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Ticket not found"))
	case domain.IsConflictError(err):
		c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	case errors.Is(err, domain.ErrExhaustedRetries):
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable(err.Error()))
	default:
		logger.Get().Error(fmt.Sprintf("%s: %v", fallback, err))
		c.JSON(http.StatusInternalServerError, response.InternalError(fallback))
	}
}

// page converts an offset window to a 1-based page number
func page(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
