package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/auth"
	"github.com/hostledger/service-rental/internal/common/middleware"
	"github.com/hostledger/service-rental/internal/common/response"
)

// GuestHandler handles HTTP requests for guest management.
type GuestHandler struct {
	service *application.GuestService
}

// NewGuestHandler creates a new GuestHandler.
func NewGuestHandler(service *application.GuestService) *GuestHandler {
	return &GuestHandler{service: service}
}

// RegisterRoutes registers all guest routes.
func (h *GuestHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	guests := r.Group("/api/v1/guests")
	guests.Use(authMW)
	{
		guests.POST("", h.CreateGuest)
		guests.GET("", h.ListGuests)
		guests.GET("/:id", h.GetGuest)
		guests.PATCH("/:id", h.UpdateGuest)
		guests.DELETE("/:id", h.DeleteGuest)
		guests.GET("/:id/bookings", h.GuestHistory)
		guests.POST("/:id/notes", h.AddNote)
	}
}

// CreateGuest handles POST /api/v1/guests.
func (h *GuestHandler) CreateGuest(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var req application.CreateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateGuest(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListGuests handles GET /api/v1/guests.
func (h *GuestHandler) ListGuests(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	result, err := h.service.ListGuests(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetGuest handles GET /api/v1/guests/:id.
func (h *GuestHandler) GetGuest(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	guestID, ok := pathID(c, "guest")
	if !ok {
		return
	}

	result, err := h.service.GetGuest(c.Request.Context(), userID, guestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateGuest handles PATCH /api/v1/guests/:id.
func (h *GuestHandler) UpdateGuest(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	guestID, ok := pathID(c, "guest")
	if !ok {
		return
	}

	var req application.UpdateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateGuest(c.Request.Context(), userID, guestID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteGuest handles DELETE /api/v1/guests/:id.
func (h *GuestHandler) DeleteGuest(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	guestID, ok := pathID(c, "guest")
	if !ok {
		return
	}

	if err := h.service.DeleteGuest(c.Request.Context(), userID, guestID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// GuestHistory handles GET /api/v1/guests/:id/bookings.
func (h *GuestHandler) GuestHistory(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	guestID, ok := pathID(c, "guest")
	if !ok {
		return
	}

	result, err := h.service.GuestHistory(c.Request.Context(), userID, guestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AddNote handles POST /api/v1/guests/:id/notes.
func (h *GuestHandler) AddNote(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	guestID, ok := pathID(c, "guest")
	if !ok {
		return
	}

	var req application.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddGuestNote(c.Request.Context(), userID, guestID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
