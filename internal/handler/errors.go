package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"vipclub/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP answers.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
	case errors.Is(err, service.ErrGateway):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": service.ErrGateway.Error()})
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadySpun):
		c.JSON(http.StatusConflict, gin.H{"error": "already used"})
	case errors.Is(err, service.ErrNotApproved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrWrongPurpose),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrInvalidDays):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
	default:
		slog.Error("[API] request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
