package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/database"
	"github.com/homenest/booking-backend/internal/events"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/pkg/payment"
)

// PaymentServiceConfig holds configuration for the payment service
type PaymentServiceConfig struct {
	GatewayTimeout  time.Duration // Per-attempt gateway call deadline
	MinLeadTime     time.Duration // Minimum gap between now and scheduled_date
	PayLaterDueDays int           // Days until a pay-later payment is due
}

// DefaultPaymentServiceConfig returns default configuration
func DefaultPaymentServiceConfig() PaymentServiceConfig {
	return PaymentServiceConfig{
		GatewayTimeout:  10 * time.Second,
		MinLeadTime:     24 * time.Hour,
		PayLaterDueDays: 7,
	}
}

// PaymentService owns payment verification and booking creation: it is
// the only component that turns a payment into a booking, and it does so
// exactly once per transaction.
type PaymentService struct {
	paymentRepo *database.PaymentRepository
	bookingRepo *database.BookingRepository
	gateway     payment.Gateway
	publisher   events.Publisher
	config      PaymentServiceConfig
	logger      *logrus.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	gateway payment.Gateway,
	publisher events.Publisher,
	config PaymentServiceConfig,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		gateway:     gateway,
		publisher:   publisher,
		config:      config,
		logger:      logger,
	}
}

// CreateQRPayment validates the cart, registers a payment intent with
// the gateway and records the pending payment. The payment row is only
// inserted after the gateway call succeeds, so a gateway failure leaves
// nothing behind.
func (s *PaymentService) CreateQRPayment(ctx context.Context, userID string, req *models.CreateQRPaymentRequest) (*models.QRPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	intent, err := s.createIntent(ctx, req.Amount)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		UserID:        userID,
		Amount:        req.Amount,
		Status:        models.PaymentStatusPending,
		Method:        models.PaymentMethodQR,
		TransactionID: intent.TransactionID,
		QRCode:        &intent.QRCode,
		UPILink:       &intent.UPILink,
	}
	if err := s.paymentRepo.Create(p); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"transaction_id": intent.TransactionID,
		"amount":         req.Amount,
	}).Info("QR payment intent created")

	return &models.QRPaymentResponse{
		TransactionID: intent.TransactionID,
		Amount:        req.Amount,
		QRCode:        intent.QRCode,
		UPILink:       intent.UPILink,
	}, nil
}

// VerifyPayment confirms a settled transaction and creates its booking.
// Idempotent per transaction: the first successful call creates the
// booking, every later call (including the loser of a concurrent race)
// returns the same booking.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID string, req *models.VerifyPaymentRequest) (*models.Booking, error) {
	p, err := s.paymentRepo.GetByTransactionID(req.TransactionID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		// Do not reveal other users' transactions
		return nil, apperrors.ErrNotFound
	}

	switch p.Status {
	case models.PaymentStatusCompleted:
		return s.replayBooking(p)
	case models.PaymentStatusFailed:
		return nil, apperrors.ErrConflict
	}

	// The submitted cart must still match what was paid
	if err := req.Items.Validate(p.Amount); err != nil {
		return nil, err
	}
	if err := validateLeadTime(req.ScheduledDate, s.config.MinLeadTime); err != nil {
		return nil, err
	}

	status, err := s.queryStatus(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	switch status {
	case payment.StatusFailed:
		if err := s.paymentRepo.MarkFailed(req.TransactionID); err != nil {
			s.logger.WithError(err).WithField("transaction_id", req.TransactionID).
				Error("Failed to record gateway failure")
		}
		return nil, apperrors.ErrConflict
	case payment.StatusPending:
		return nil, apperrors.ErrConflict
	}

	booking := &models.Booking{
		UserID:        userID,
		Items:         req.Items,
		TotalAmount:   p.Amount,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
	}

	err = s.paymentRepo.CompleteAndCreateBooking(req.TransactionID, booking)
	if errors.Is(err, apperrors.ErrConflict) {
		// A concurrent verification won the race; return its booking
		p, rerr := s.paymentRepo.GetByTransactionID(req.TransactionID)
		if rerr != nil {
			return nil, rerr
		}
		if p.Status == models.PaymentStatusCompleted {
			return s.replayBooking(p)
		}
		return nil, apperrors.ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"transaction_id": req.TransactionID,
		"booking_id":     booking.ID,
	}).Info("Payment verified, booking created")

	publishBookingEvent(s.publisher, events.QueueBookingCreated, booking)
	return booking, nil
}

// CreatePayLaterOrder creates a pending payment and its booking in one
// atomic step. No verification call is needed for this path.
func (s *PaymentService) CreatePayLaterOrder(ctx context.Context, userID string, req *models.CreatePayLaterOrderRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := validateLeadTime(req.ScheduledDate, s.config.MinLeadTime); err != nil {
		return nil, err
	}

	dueDate := time.Now().AddDate(0, 0, s.config.PayLaterDueDays)
	p := &models.Payment{
		UserID:        userID,
		Amount:        req.Amount,
		Status:        models.PaymentStatusPending,
		Method:        models.PaymentMethodPayLater,
		TransactionID: "PL-" + uuid.New().String(),
		DueDate:       &dueDate,
	}
	booking := &models.Booking{
		UserID:        userID,
		Items:         req.Items,
		TotalAmount:   req.Amount,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
	}

	if err := s.paymentRepo.CreatePayLaterOrder(p, booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"due_date":   dueDate.Format("2006-01-02"),
	}).Info("Pay-later order created")

	publishBookingEvent(s.publisher, events.QueueBookingCreated, booking)
	return booking, nil
}

// replayBooking returns the booking already created for a completed
// payment
func (s *PaymentService) replayBooking(p *models.Payment) (*models.Booking, error) {
	if p.BookingID == nil {
		return nil, apperrors.ErrConflict
	}
	return s.bookingRepo.GetByID(*p.BookingID)
}

// createIntent calls the gateway with a bounded deadline and at most one
// retry
func (s *PaymentService) createIntent(ctx context.Context, amount float64) (*payment.Intent, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
		intent, err := s.gateway.CreateIntent(callCtx, amount)
		cancel()
		if err == nil {
			return intent, nil
		}
		lastErr = err
		s.logger.WithError(err).WithField("attempt", attempt+1).Warn("Gateway intent creation failed")
	}
	return nil, &apperrors.GatewayError{Op: "create_intent", Err: lastErr}
}

// queryStatus calls the gateway with a bounded deadline and at most one
// retry
func (s *PaymentService) queryStatus(ctx context.Context, transactionID string) (payment.Status, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
		status, err := s.gateway.QueryStatus(callCtx, transactionID)
		cancel()
		if err == nil {
			return status, nil
		}
		lastErr = err
		s.logger.WithError(err).WithField("attempt", attempt+1).Warn("Gateway status query failed")
	}
	return "", &apperrors.GatewayError{Op: "query_status", Err: lastErr}
}
