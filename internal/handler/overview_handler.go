package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/auth"
	"github.com/hostledger/service-rental/internal/common/middleware"
	"github.com/hostledger/service-rental/internal/common/response"
	bookingDomain "github.com/hostledger/service-rental/internal/domain/booking"
)

// OverviewHandler serves the owner dashboard.
type OverviewHandler struct {
	service *application.OverviewService
}

// NewOverviewHandler creates a new OverviewHandler.
func NewOverviewHandler(service *application.OverviewService) *OverviewHandler {
	return &OverviewHandler{service: service}
}

// RegisterRoutes registers dashboard routes.
func (h *OverviewHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	overview := r.Group("/api/v1/overview")
	overview.Use(authMW)
	{
		overview.GET("", h.Overview)
		overview.GET("/arrivals", h.Arrivals)
	}
}

// Overview handles GET /api/v1/overview.
func (h *OverviewHandler) Overview(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	stats, err := h.service.Overview(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Arrivals handles GET /api/v1/overview/arrivals?date=YYYY-MM-DD (default today).
func (h *OverviewHandler) Arrivals(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := bookingDomain.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		day = parsed
	}

	result, err := h.service.Arrivals(c.Request.Context(), userID, day)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
