package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"city_parking/internal/repository"
	"city_parking/internal/service"
)

// respondError maps the engine error taxonomy to HTTP status codes so
// every handler reports precondition failures the same way.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicateEntry),
		errors.Is(err, repository.ErrAlreadyActive),
		errors.Is(err, repository.ErrNotActive),
		errors.Is(err, repository.ErrLotHasActiveRes),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNoCapacity),
		errors.Is(err, repository.ErrNoFreeSpot),
		errors.Is(err, repository.ErrLotInactive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
	}
}
