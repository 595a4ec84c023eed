package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/homenest/booking-backend/internal/database"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/internal/utils"
)

// AuditService records who performed which state transition, with
// parsed device info. Writes run in the background: a failed audit write
// is logged but never rolls back the transition it describes.
type AuditService struct {
	repo    *database.AuditLogRepository
	enabled bool
	logger  *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo *database.AuditLogRepository, enabled bool, logger *logrus.Logger) *AuditService {
	return &AuditService{repo: repo, enabled: enabled, logger: logger}
}

// LogBookingAction records a booking transition taken through the API
func (s *AuditService) LogBookingAction(actorID *string, action, bookingID, ipAddress, userAgent string, details models.JSONMap) {
	if !s.enabled {
		return
	}

	if details == nil {
		details = models.JSONMap{}
	}
	details["device_info"] = utils.ParseUserAgent(userAgent)

	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: "booking",
		EntityID:   bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
		CreatedAt:  time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Log(ctx, entry); err != nil {
			s.logger.WithError(err).WithField("action", action).Warn("Audit write failed")
		}
	}()
}
