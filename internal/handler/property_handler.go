package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/auth"
	"github.com/hostledger/service-rental/internal/common/middleware"
	"github.com/hostledger/service-rental/internal/common/response"
)

// PropertyHandler handles HTTP requests for property management.
type PropertyHandler struct {
	service *application.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(service *application.PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// RegisterRoutes registers all property routes.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	properties := r.Group("/api/v1/properties")
	properties.Use(authMW)
	{
		properties.POST("", h.CreateProperty)
		properties.GET("", h.ListProperties)
		properties.GET("/:id", h.GetProperty)
		properties.PUT("/:id", h.UpdateProperty)
		properties.DELETE("/:id", h.DeleteProperty)
	}
}

// CreateProperty handles POST /api/v1/properties.
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var req application.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateProperty(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListProperties handles GET /api/v1/properties.
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	result, err := h.service.ListProperties(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProperty handles GET /api/v1/properties/:id.
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "property")
	if !ok {
		return
	}

	result, err := h.service.GetProperty(c.Request.Context(), userID, propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateProperty handles PUT /api/v1/properties/:id.
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "property")
	if !ok {
		return
	}

	var req application.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateProperty(c.Request.Context(), userID, propertyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteProperty handles DELETE /api/v1/properties/:id.
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "property")
	if !ok {
		return
	}

	if err := h.service.DeleteProperty(c.Request.Context(), userID, propertyID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
