package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/homenest/booking-backend/internal/apperrors"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// LineItem is a cart line snapshotted onto the booking at creation time.
// The category is carried so agent matching needs no catalog lookup.
type LineItem struct {
	ServiceID string  `json:"service_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// LineItems is stored as a JSONB column on the bookings table
type LineItems []LineItem

// Value implements the driver.Valuer interface
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *LineItems) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into LineItems", src)
	}
	return json.Unmarshal(data, l)
}

// Total returns the sum of price x quantity over all items
func (l LineItems) Total() float64 {
	var total float64
	for _, item := range l {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Categories returns the distinct service categories across all items
func (l LineItems) Categories() []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, item := range l {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		categories = append(categories, item.Category)
	}
	return categories
}

// Validate checks the cart lines and that the claimed amount matches the
// computed total
func (l LineItems) Validate(amount float64) error {
	if len(l) == 0 {
		return apperrors.NewValidation("cart must contain at least one item")
	}
	for i, item := range l {
		if item.ServiceID == "" {
			return apperrors.NewValidation("item %d: service_id is required", i)
		}
		if item.Quantity <= 0 {
			return apperrors.NewValidation("item %d: quantity must be at least 1", i)
		}
		if item.Price < 0 {
			return apperrors.NewValidation("item %d: price cannot be negative", i)
		}
	}
	// Amounts are rupees with paise precision; compare within half a paisa
	if diff := amount - l.Total(); diff > 0.005 || diff < -0.005 {
		return apperrors.NewValidation("amount %.2f does not match cart total %.2f", amount, l.Total())
	}
	return nil
}

// Booking represents a customer's request for one or more services at a
// scheduled date
type Booking struct {
	ID                 string        `json:"id" db:"id"`
	UserID             string        `json:"user_id" db:"user_id"`
	Items              LineItems     `json:"items" db:"items"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	Status             BookingStatus `json:"status" db:"status"`
	ScheduledDate      time.Time     `json:"scheduled_date" db:"scheduled_date"`
	PaymentID          string        `json:"payment_id" db:"payment_id"`
	AgentID            *string       `json:"agent_id,omitempty" db:"agent_id"`
	Notes              *string       `json:"notes,omitempty" db:"notes"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt          time.Time     `json:"booking_date" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the booking has reached a terminal status
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// ServiceCategories returns the distinct categories of the booked services
func (b *Booking) ServiceCategories() []string {
	return b.Items.Categories()
}

// CreateQRPaymentRequest starts the QR checkout flow
type CreateQRPaymentRequest struct {
	Items  LineItems `json:"items" binding:"required"`
	Amount float64   `json:"amount" binding:"required"`
}

// Validate validates the QR payment request
func (r *CreateQRPaymentRequest) Validate() error {
	return r.Items.Validate(r.Amount)
}

// VerifyPaymentRequest completes the QR checkout flow. The cart is
// resubmitted so the paid amount can be re-checked against it.
type VerifyPaymentRequest struct {
	TransactionID string    `json:"transaction_id" binding:"required"`
	Items         LineItems `json:"items" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	Notes         *string   `json:"notes,omitempty"`
}

// CreatePayLaterOrderRequest creates a pay-later order in one step
type CreatePayLaterOrderRequest struct {
	Items         LineItems `json:"items" binding:"required"`
	Amount        float64   `json:"amount" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	Notes         *string   `json:"notes,omitempty"`
}

// Validate validates the pay-later order request
func (r *CreatePayLaterOrderRequest) Validate() error {
	return r.Items.Validate(r.Amount)
}

// AssignAgentRequest assigns an agent to a pending booking
type AssignAgentRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

// CancelBookingRequest carries the cancellation reason
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// RescheduleBookingRequest moves a booking to a new date
type RescheduleBookingRequest struct {
	NewDate time.Time `json:"new_date" binding:"required"`
}
