package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/homenest/booking-backend/internal/models"
)

// AuditLogRepository handles audit log writes
type AuditLogRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sqlx.DB, logger *logrus.Logger) *AuditLogRepository {
	return &AuditLogRepository{db: db, logger: logger}
}

// Log inserts a new audit entry
func (r *AuditLogRepository) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_id, action, entity_type, entity_id,
			ip_address, user_agent, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.IPAddress, entry.UserAgent, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
		}).Error("Failed to write audit log")
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}
