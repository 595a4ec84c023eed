// Package events defines the booking lifecycle events consumed by the
// external notifier. The core only publishes; delivery to customers
// (email, WhatsApp) is the notifier's responsibility.
package events

import "time"

// Queue names, one durable queue per event type
const (
	QueueBookingCreated   = "booking.created"
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
	QueueBookingCompleted = "booking.completed"
)

// BookingEvent carries the booking identity and resulting state after a
// committed transition
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	AgentID    *string   `json:"agent_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
