package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homenest/booking-backend/internal/middleware"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/internal/services"
)

// PaymentHandler handles the checkout surface: QR payment creation,
// payment verification and pay-later orders
type PaymentHandler struct {
	paymentService *services.PaymentService
	auditService   *services.AuditService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, auditService *services.AuditService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		auditService:   auditService,
	}
}

// CreateQRPayment creates a payment intent for the submitted cart
// POST /api/v1/payments/qr
func (h *PaymentHandler) CreateQRPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateQRPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.paymentService.CreateQRPayment(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// VerifyPayment verifies a transaction and creates the booking.
// Idempotent: re-verifying a settled transaction returns the existing
// booking with 200 instead of creating a second one.
// POST /api/v1/payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.paymentService.VerifyPayment(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "payment_verified", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), models.JSONMap{"transaction_id": req.TransactionID})

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CreatePayLaterOrder creates a pay-later order and its booking in one
// step
// POST /api/v1/orders/pay-later
func (h *PaymentHandler) CreatePayLaterOrder(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreatePayLaterOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.paymentService.CreatePayLaterOrder(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.LogBookingAction(&userCtx.UserID, "pay_later_order_created", booking.ID,
		c.ClientIP(), c.Request.UserAgent(), nil)

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}
