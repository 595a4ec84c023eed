package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/models"
)

// bookingColumns is the column list shared by all booking SELECTs
const bookingColumns = `id, user_id, items, total_amount, status,
	   scheduled_date, payment_id, agent_id, notes,
	   cancellation_reason, cancelled_at, completed_at,
	   created_at, updated_at`

// BookingRepository handles database operations for the bookings table.
// Every state transition is a compare-and-set: an UPDATE gated on the
// expected current status, checked via RowsAffected. Concurrent callers
// on the same booking therefore resolve to exactly one winner; losers
// get apperrors.ErrConflict.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// GetByUserID retrieves bookings for a user, optionally filtered by status
func (r *BookingRepository) GetByUserID(userID string, status *models.BookingStatus) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1`
	args := []interface{}{userID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListByStatus retrieves all bookings in the given status, oldest first
// (admins work the pending queue in arrival order)
func (r *BookingRepository) ListByStatus(status models.BookingStatus) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by status: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ConfirmWithAgent performs the pending -> confirmed transition, setting
// the agent and incrementing the agent's total booking counter in one
// transaction. At most one concurrent caller can win: the UPDATE matches
// only while the booking is still pending and unassigned.
func (r *BookingRepository) ConfirmWithAgent(bookingID, agentID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE bookings
		SET status = 'confirmed', agent_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND agent_id IS NULL`,
		bookingID, agentID)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return r.missingOrConflict(bookingID)
	}

	result, err = tx.Exec(`
		UPDATE agents
		SET total_bookings = total_bookings + 1, updated_at = NOW()
		WHERE id = $1`,
		agentID)
	if err != nil {
		return fmt.Errorf("failed to update agent counters: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit confirmation: %w", err)
	}
	return nil
}

// Cancel performs the pending|confirmed -> cancelled transition
func (r *BookingRepository) Cancel(bookingID string, reason *string) error {
	result, err := r.db.Exec(`
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $2,
			cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		bookingID, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return r.missingOrConflict(bookingID)
	}
	return nil
}

// Complete performs the confirmed -> completed transition and increments
// the assigned agent's completed counter in the same transaction
func (r *BookingRepository) Complete(bookingID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var agentID sql.NullString
	err = tx.QueryRow(`
		UPDATE bookings
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING agent_id`,
		bookingID).Scan(&agentID)
	if err == sql.ErrNoRows {
		return r.missingOrConflict(bookingID)
	}
	if err != nil {
		return fmt.Errorf("failed to complete booking: %w", err)
	}

	if agentID.Valid {
		_, err = tx.Exec(`
			UPDATE agents
			SET completed_bookings = completed_bookings + 1, updated_at = NOW()
			WHERE id = $1`,
			agentID.String)
		if err != nil {
			return fmt.Errorf("failed to update agent counters: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

// Reschedule updates the scheduled date while the booking is still
// mutable. Gating on status means a reschedule cannot race a concurrent
// cancellation or completion.
func (r *BookingRepository) Reschedule(bookingID string, newDate time.Time) error {
	result, err := r.db.Exec(`
		UPDATE bookings
		SET scheduled_date = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		bookingID, newDate)
	if err != nil {
		return fmt.Errorf("failed to reschedule booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return r.missingOrConflict(bookingID)
	}
	return nil
}

// missingOrConflict distinguishes a zero-row CAS result: the booking
// either does not exist or is in a status the transition does not allow
func (r *BookingRepository) missingOrConflict(bookingID string) error {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, bookingID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking existence: %w", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return apperrors.ErrConflict
}

// scanBooking scans a single booking
func (r *BookingRepository) scanBooking(row *sql.Row) (*models.Booking, error) {
	booking := &models.Booking{}
	var agentID, notes, cancellationReason sql.NullString
	var cancelledAt, completedAt sql.NullTime

	err := row.Scan(
		&booking.ID, &booking.UserID, &booking.Items, &booking.TotalAmount,
		&booking.Status, &booking.ScheduledDate, &booking.PaymentID,
		&agentID, &notes, &cancellationReason, &cancelledAt, &completedAt,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	if agentID.Valid {
		booking.AgentID = &agentID.String
	}
	if notes.Valid {
		booking.Notes = &notes.String
	}
	if cancellationReason.Valid {
		booking.CancellationReason = &cancellationReason.String
	}
	if cancelledAt.Valid {
		booking.CancelledAt = &cancelledAt.Time
	}
	if completedAt.Valid {
		booking.CompletedAt = &completedAt.Time
	}

	return booking, nil
}

// scanBookings scans multiple bookings from rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		var booking models.Booking
		var agentID, notes, cancellationReason sql.NullString
		var cancelledAt, completedAt sql.NullTime

		err := rows.Scan(
			&booking.ID, &booking.UserID, &booking.Items, &booking.TotalAmount,
			&booking.Status, &booking.ScheduledDate, &booking.PaymentID,
			&agentID, &notes, &cancellationReason, &cancelledAt, &completedAt,
			&booking.CreatedAt, &booking.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}

		if agentID.Valid {
			booking.AgentID = &agentID.String
		}
		if notes.Valid {
			booking.Notes = &notes.String
		}
		if cancellationReason.Valid {
			booking.CancellationReason = &cancellationReason.String
		}
		if cancelledAt.Valid {
			booking.CancelledAt = &cancelledAt.Time
		}
		if completedAt.Valid {
			booking.CompletedAt = &completedAt.Time
		}

		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
