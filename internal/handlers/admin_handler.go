package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/homenest/booking-backend/internal/middleware"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/internal/services"
)

// AdminHandler handles the admin dashboard surface: the pending queue,
// agent listing and booking transitions
type AdminHandler struct {
	bookingService *services.BookingService
	auditService   *services.AuditService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(bookingService *services.BookingService, auditService *services.AuditService) *AdminHandler {
	return &AdminHandler{
		bookingService: bookingService,
		auditService:   auditService,
	}
}

// ListPendingBookings returns the pending queue, oldest first
// GET /api/v1/admin/bookings/pending
func (h *AdminHandler) ListPendingBookings(c *gin.Context) {
	bookings, err := h.bookingService.ListPendingBookings()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ListAvailableAgents returns available agents, filtered by categories
// GET /api/v1/admin/agents/available?categories=Cleaning,Plumbing
func (h *AdminHandler) ListAvailableAgents(c *gin.Context) {
	var categories []string
	if raw := c.Query("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				categories = append(categories, trimmed)
			}
		}
	}

	agents, err := h.bookingService.ListAvailableAgents(c.Request.Context(), categories)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents, "count": len(agents)})
}

// AssignAgent confirms a pending booking with the chosen agent
// POST /api/v1/admin/bookings/:id/assign-agent
func (h *AdminHandler) AssignAgent(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	var req models.AssignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.AssignAgent(c.Request.Context(), c.Param("id"), req.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "agent_assigned", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), models.JSONMap{"agent_id": req.AgentID})

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CancelBooking cancels a booking from the admin surface
// POST /api/v1/admin/bookings/:id/cancel
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), req.Reason, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "booking_cancelled", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), nil)

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CompleteBooking marks a confirmed booking completed
// POST /api/v1/admin/bookings/:id/complete
func (h *AdminHandler) CompleteBooking(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	booking, err := h.bookingService.CompleteBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "booking_completed", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), nil)

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
