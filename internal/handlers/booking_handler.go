package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/middleware"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/internal/services"
)

// BookingHandler handles the customer booking surface
type BookingHandler struct {
	bookingService *services.BookingService
	auditService   *services.AuditService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, auditService *services.AuditService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		auditService:   auditService,
	}
}

// MyBookings lists the caller's bookings, optionally filtered by status
// GET /api/v1/bookings?status=pending
func (h *BookingHandler) MyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var status *models.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s := models.BookingStatus(raw)
		switch s {
		case models.BookingStatusPending, models.BookingStatusConfirmed,
			models.BookingStatusCompleted, models.BookingStatusCancelled:
			status = &s
		default:
			respondError(c, apperrors.NewValidation("unknown status %q", raw))
			return
		}
	}

	bookings, err := h.bookingService.MyBookings(userCtx.UserID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GetBooking returns one of the caller's bookings. Reads are pure: no
// notification or other side effect is triggered by viewing a booking.
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	booking, err := h.bookingService.GetBooking(c.Param("id"), &userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// RescheduleBooking moves one of the caller's bookings to a new date
// POST /api/v1/bookings/:id/reschedule
func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.RescheduleBooking(c.Request.Context(), c.Param("id"), req.NewDate, &userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "booking_rescheduled", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), models.JSONMap{"new_date": req.NewDate})

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CancelBooking cancels one of the caller's bookings
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), req.Reason, &userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "booking_cancelled", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), nil)

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
