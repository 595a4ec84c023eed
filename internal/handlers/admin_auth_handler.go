package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/internal/services"
)

// AdminAuthHandler handles admin dashboard authentication
type AdminAuthHandler struct {
	authService *services.AdminAuthService
}

// NewAdminAuthHandler creates a new AdminAuthHandler
func NewAdminAuthHandler(authService *services.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{authService: authService}
}

// Login authenticates an admin and issues tokens
// POST /api/v1/admin/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.authService.Login(req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid email or password",
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
