package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostledger/service-rental/internal/application"
	"github.com/hostledger/service-rental/internal/common/auth"
	"github.com/hostledger/service-rental/internal/common/middleware"
	"github.com/hostledger/service-rental/internal/common/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service   *application.BookingService
	contracts *application.ContractService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, contracts *application.ContractService) *BookingHandler {
	return &BookingHandler{service: service, contracts: contracts}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.POST("/availability", h.CheckAvailability)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id", h.UpdateBooking)
		bookings.DELETE("/:id", h.DeleteBooking)
		bookings.POST("/:id/contract", h.UploadContract)
	}

	calendar := r.Group("/api/v1/calendar")
	calendar.Use(authMW)
	calendar.GET("", h.Calendar)
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	writeOutcome(c, outcome, true)
}

// ListBookings handles GET /api/v1/bookings?property_id=&guest_id=&from=&to=.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	propertyID, ok := queryID(c, "property_id")
	if !ok {
		return
	}
	guestID, ok := queryID(c, "guest_id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListBookings(c.Request.Context(), userID, application.BookingFilter{
		PropertyID: propertyID,
		GuestID:    guestID,
		From:       c.Query("from"),
		To:         c.Query("to"),
	}, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "booking")
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), userID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateBooking handles PATCH /api/v1/bookings/:id.
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "booking")
	if !ok {
		return
	}

	var req application.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.UpdateBooking(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	writeOutcome(c, outcome, false)
}

// DeleteBooking handles DELETE /api/v1/bookings/:id.
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "booking")
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), userID, bookingID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CheckAvailability handles POST /api/v1/bookings/availability.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var req application.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Calendar handles GET /api/v1/calendar?from=&to=.
func (h *BookingHandler) Calendar(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	result, err := h.service.Calendar(c.Request.Context(), userID, c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UploadContract handles POST /api/v1/bookings/:id/contract (multipart field "file").
func (h *BookingHandler) UploadContract(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "booking")
	if !ok {
		return
	}

	limit := int64(h.contracts.MaxBytes())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "contract is too large"})
			return
		}
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "contract is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}

	result, err := h.contracts.UploadContract(c.Request.Context(), userID, bookingID, data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
