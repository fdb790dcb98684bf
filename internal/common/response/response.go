// Package response writes the JSON envelopes returned by every handler.
package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hostledger/service-rental/internal/common/domain"
	"github.com/hostledger/service-rental/internal/store"
)

// RetryAfterSeconds is advertised when a backing index is still building.
const RetryAfterSeconds = 30

// Meta carries pagination details for list responses.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// NoContent writes 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes 200 with items and paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": Meta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

// Rejected writes 409 for a booking the availability check refused.
func Rejected(c *gin.Context, reason string) {
	c.JSON(http.StatusConflict, gin.H{"success": false, "error": reason, "code": "unavailable"})
}

// BadRequest writes 400 with message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
}

// Error maps err onto a status code and writes it.
func Error(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		forbidden  *domain.ForbiddenError
		notReady   *store.IndexNotReadyError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validation.Message})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": conflict.Message})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": forbidden.Message})
	case errors.As(err, &notReady):
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":   false,
			"error":     "booking index is still building, retry shortly",
			"index":     notReady.Index,
			"reference": notReady.Reference,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}
