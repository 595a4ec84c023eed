package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/models"
)

const paymentColumns = `id, user_id, amount, status, method, transaction_id,
	   booking_id, qr_code, upi_link, due_date, created_at, updated_at`

// PaymentRepository handles database operations for the payments table.
// It owns the two creation paths that must be atomic across payments and
// bookings, so it takes *sqlx.DB directly for transactions.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment record
func (r *PaymentRepository) Create(payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}

	err := r.db.QueryRow(`
		INSERT INTO payments (
			id, user_id, amount, status, method, transaction_id,
			booking_id, qr_code, upi_link, due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		payment.ID, payment.UserID, payment.Amount, payment.Status,
		payment.Method, payment.TransactionID, payment.BookingID,
		payment.QRCode, payment.UPILink, payment.DueDate,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByTransactionID retrieves a payment by its gateway transaction ID
func (r *PaymentRepository) GetByTransactionID(transactionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	return r.scanPayment(r.db.QueryRow(query, transactionID))
}

// MarkFailed moves a pending payment to failed. A zero-row result is not
// an error: the payment may already be failed or completed, and the
// caller re-reads to decide.
func (r *PaymentRepository) MarkFailed(transactionID string) error {
	_, err := r.db.Exec(`
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'`,
		transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

// CompleteAndCreateBooking atomically marks a pending payment completed
// and creates its booking. The payment UPDATE is gated on status =
// 'pending', so under concurrent verification exactly one caller creates
// the booking; the loser gets apperrors.ErrConflict and should re-read
// the payment to find the winner's booking.
func (r *PaymentRepository) CompleteAndCreateBooking(transactionID string, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var paymentID string
	err = tx.QueryRow(`
		UPDATE payments
		SET status = 'completed', booking_id = $2, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'
		RETURNING id`,
		transactionID, booking.ID).Scan(&paymentID)
	if err == sql.ErrNoRows {
		return apperrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	booking.PaymentID = paymentID
	booking.Status = models.BookingStatusPending

	err = tx.QueryRow(`
		INSERT INTO bookings (
			id, user_id, items, total_amount, status,
			scheduled_date, payment_id, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		booking.ID, booking.UserID, booking.Items, booking.TotalAmount,
		booking.Status, booking.ScheduledDate, booking.PaymentID, booking.Notes,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment verification: %w", err)
	}
	return nil
}

// CreatePayLaterOrder atomically creates a pending pay-later payment and
// its booking. There is no separate verification step for this path.
func (r *PaymentRepository) CreatePayLaterOrder(payment *models.Payment, booking *models.Booking) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	payment.BookingID = &booking.ID
	booking.PaymentID = payment.ID
	booking.Status = models.BookingStatusPending

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
		INSERT INTO payments (
			id, user_id, amount, status, method, transaction_id,
			booking_id, due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		payment.ID, payment.UserID, payment.Amount, payment.Status,
		payment.Method, payment.TransactionID, payment.BookingID, payment.DueDate,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pay-later payment: %w", err)
	}

	err = tx.QueryRow(`
		INSERT INTO bookings (
			id, user_id, items, total_amount, status,
			scheduled_date, payment_id, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		booking.ID, booking.UserID, booking.Items, booking.TotalAmount,
		booking.Status, booking.ScheduledDate, booking.PaymentID, booking.Notes,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pay-later booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pay-later order: %w", err)
	}
	return nil
}

// scanPayment scans a single payment
func (r *PaymentRepository) scanPayment(row *sql.Row) (*models.Payment, error) {
	payment := &models.Payment{}
	var bookingID, qrCode, upiLink sql.NullString
	var dueDate sql.NullTime

	err := row.Scan(
		&payment.ID, &payment.UserID, &payment.Amount, &payment.Status,
		&payment.Method, &payment.TransactionID, &bookingID,
		&qrCode, &upiLink, &dueDate,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	if bookingID.Valid {
		payment.BookingID = &bookingID.String
	}
	if qrCode.Valid {
		payment.QRCode = &qrCode.String
	}
	if upiLink.Valid {
		payment.UPILink = &upiLink.String
	}
	if dueDate.Valid {
		payment.DueDate = &dueDate.Time
	}

	return payment, nil
}
