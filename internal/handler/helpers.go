package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/middleware"
	"github.com/hostledger/service-rental/internal/common/response"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
)

func ownerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
	}
	return id, ok
}

func pathID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+entity+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func queryID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid "+key)
		return nil, false
	}
	return &id, true
}

// writeOutcome renders a booking write. A missing booking is a 404, an
// unavailable stay a 409 carrying the reason.
func writeOutcome(c *gin.Context, outcome application.Outcome, created bool) {
	switch {
	case outcome.Rejected == bookingDomain.ReasonNotFound:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": string(outcome.Rejected)})
	case !outcome.Applied():
		response.Rejected(c, string(outcome.Rejected))
	case created:
		response.Created(c, outcome.Booking)
	default:
		response.Success(c, outcome.Booking)
	}
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
