package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/database"
	"github.com/homenest/booking-backend/internal/events"
	"github.com/homenest/booking-backend/internal/models"
	"github.com/homenest/booking-backend/pkg/payment"
)

// fakeGateway lets tests script gateway responses and count attempts
type fakeGateway struct {
	createIntent func(ctx context.Context, amount float64) (*payment.Intent, error)
	queryStatus  func(ctx context.Context, transactionID string) (payment.Status, error)

	intentCalls int
	statusCalls int
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount float64) (*payment.Intent, error) {
	g.intentCalls++
	return g.createIntent(ctx, amount)
}

func (g *fakeGateway) QueryStatus(ctx context.Context, transactionID string) (payment.Status, error) {
	g.statusCalls++
	return g.queryStatus(ctx, transactionID)
}

var paymentRows = []string{
	"id", "user_id", "amount", "status", "method", "transaction_id",
	"booking_id", "qr_code", "upi_link", "due_date", "created_at", "updated_at",
}

func paymentRow(userID, transactionID string, status models.PaymentStatus, bookingID driver.Value) []driver.Value {
	now := time.Now()
	return []driver.Value{
		uuid.New().String(), userID, 1500.0, string(status), "qr", transactionID,
		bookingID, nil, nil, nil, now, now,
	}
}

func newPaymentService(t *testing.T, gateway payment.Gateway) (*PaymentService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := quietLogger()
	service := NewPaymentService(
		database.NewPaymentRepository(sqlxDB),
		database.NewBookingRepository(sqlxDB),
		gateway,
		events.NewNoopPublisher(logger),
		PaymentServiceConfig{
			GatewayTimeout:  time.Second,
			MinLeadTime:     24 * time.Hour,
			PayLaterDueDays: 7,
		},
		logger,
	)
	return service, mock, func() { db.Close() }
}

func verifyRequest(transactionID string) *models.VerifyPaymentRequest {
	return &models.VerifyPaymentRequest{
		TransactionID: transactionID,
		Items: models.LineItems{
			{ServiceID: "svc-1", Name: "Deep Cleaning", Category: "Cleaning", Price: 1500, Quantity: 1},
		},
		ScheduledDate: time.Now().Add(48 * time.Hour),
	}
}

func TestCreateQRPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gateway := &fakeGateway{
			createIntent: func(ctx context.Context, amount float64) (*payment.Intent, error) {
				return &payment.Intent{
					TransactionID: "txn-123",
					QRCode:        "upi-qr://txn-123",
					UPILink:       "upi://pay?tr=txn-123",
				}, nil
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		now := time.Now()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		resp, err := service.CreateQRPayment(context.Background(), uuid.New().String(), &models.CreateQRPaymentRequest{
			Items: models.LineItems{
				{ServiceID: "svc-1", Name: "Deep Cleaning", Category: "Cleaning", Price: 1500, Quantity: 1},
			},
			Amount: 1500,
		})
		require.NoError(t, err)
		assert.Equal(t, "txn-123", resp.TransactionID)
		assert.Equal(t, "upi-qr://txn-123", resp.QRCode)
		assert.Equal(t, 1, gateway.intentCalls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid Cart Never Reaches Gateway", func(t *testing.T) {
		gateway := &fakeGateway{
			createIntent: func(ctx context.Context, amount float64) (*payment.Intent, error) {
				return nil, fmt.Errorf("should not be called")
			},
		}
		service, _, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		resp, err := service.CreateQRPayment(context.Background(), uuid.New().String(), &models.CreateQRPaymentRequest{
			Items:  models.LineItems{},
			Amount: 0,
		})
		assert.True(t, apperrors.IsValidation(err))
		assert.Nil(t, resp)
		assert.Equal(t, 0, gateway.intentCalls)
	})

	t.Run("Gateway Down After Retry", func(t *testing.T) {
		gateway := &fakeGateway{
			createIntent: func(ctx context.Context, amount float64) (*payment.Intent, error) {
				return nil, fmt.Errorf("connection refused")
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		resp, err := service.CreateQRPayment(context.Background(), uuid.New().String(), &models.CreateQRPaymentRequest{
			Items: models.LineItems{
				{ServiceID: "svc-1", Price: 1500, Quantity: 1},
			},
			Amount: 1500,
		})
		assert.True(t, apperrors.IsGateway(err))
		assert.Nil(t, resp)
		assert.Equal(t, 2, gateway.intentCalls)

		// No payment row is left behind a gateway failure
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Settled Transaction Creates Booking", func(t *testing.T) {
		gateway := &fakeGateway{
			queryStatus: func(ctx context.Context, transactionID string) (payment.Status, error) {
				return payment.StatusSettled, nil
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()
		paymentID := uuid.New().String()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WithArgs("txn-123", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(paymentID))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, paymentID, booking.PaymentID)
		assert.Equal(t, userID, booking.UserID)
		assert.Equal(t, 1, gateway.statusCalls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Replay Returns Existing Booking", func(t *testing.T) {
		gateway := &fakeGateway{
			queryStatus: func(ctx context.Context, transactionID string) (payment.Status, error) {
				return "", fmt.Errorf("should not be called")
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()
		bookingID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusCompleted, bookingID)...))
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows(bookingRows).
				AddRow(bookingRow(bookingID, userID, models.BookingStatusPending, time.Now().Add(48*time.Hour), nil)...))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		require.NoError(t, err)
		assert.Equal(t, bookingID, booking.ID)
		assert.Equal(t, 0, gateway.statusCalls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other Users Transaction Is Hidden", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(uuid.New().String(), "txn-123", models.PaymentStatusPending, nil)...))

		booking, err := service.VerifyPayment(ctx, uuid.New().String(), verifyRequest("txn-123"))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed Payment", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusFailed, nil)...))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Amount Mismatch", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))

		req := verifyRequest("txn-123")
		req.Items[0].Price = 999 // cart no longer matches the paid amount

		booking, err := service.VerifyPayment(ctx, userID, req)
		assert.True(t, apperrors.IsValidation(err))
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lead Time Violation", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))

		req := verifyRequest("txn-123")
		req.ScheduledDate = time.Now().Add(2 * time.Hour)

		booking, err := service.VerifyPayment(ctx, userID, req)
		assert.True(t, apperrors.IsValidation(err))
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Reports Failed", func(t *testing.T) {
		gateway := &fakeGateway{
			queryStatus: func(ctx context.Context, transactionID string) (payment.Status, error) {
				return payment.StatusFailed, nil
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs("txn-123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Still Pending", func(t *testing.T) {
		gateway := &fakeGateway{
			queryStatus: func(ctx context.Context, transactionID string) (payment.Status, error) {
				return payment.StatusPending, nil
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Down After Retry", func(t *testing.T) {
		gateway := &fakeGateway{
			queryStatus: func(ctx context.Context, transactionID string) (payment.Status, error) {
				return "", fmt.Errorf("connection refused")
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		assert.True(t, apperrors.IsGateway(err))
		assert.Nil(t, booking)
		assert.Equal(t, 2, gateway.statusCalls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retry Succeeds On Second Attempt", func(t *testing.T) {
		gateway := &fakeGateway{}
		gateway.queryStatus = func(ctx context.Context, transactionID string) (payment.Status, error) {
			if gateway.statusCalls == 1 {
				return "", fmt.Errorf("timeout")
			}
			return payment.StatusPending, nil
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Nil(t, booking)
		assert.Equal(t, 2, gateway.statusCalls)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Loser Of Concurrent Race Replays Winner", func(t *testing.T) {
		gateway := &fakeGateway{
			queryStatus: func(ctx context.Context, transactionID string) (payment.Status, error) {
				return payment.StatusSettled, nil
			},
		}
		service, mock, cleanup := newPaymentService(t, gateway)
		defer cleanup()

		userID := uuid.New().String()
		bookingID := uuid.New().String()

		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusPending, nil)...))
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WithArgs("txn-123", sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()
		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE transaction_id`).
			WithArgs("txn-123").
			WillReturnRows(sqlmock.NewRows(paymentRows).
				AddRow(paymentRow(userID, "txn-123", models.PaymentStatusCompleted, bookingID)...))
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows(bookingRows).
				AddRow(bookingRow(bookingID, userID, models.BookingStatusPending, time.Now().Add(48*time.Hour), nil)...))

		booking, err := service.VerifyPayment(ctx, userID, verifyRequest("txn-123"))
		require.NoError(t, err)
		assert.Equal(t, bookingID, booking.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreatePayLaterOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		userID := uuid.New().String()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		booking, err := service.CreatePayLaterOrder(ctx, userID, &models.CreatePayLaterOrderRequest{
			Items: models.LineItems{
				{ServiceID: "svc-1", Name: "Deep Cleaning", Category: "Cleaning", Price: 1500, Quantity: 1},
			},
			Amount:        1500,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.NotEmpty(t, booking.ID)
		assert.NotEmpty(t, booking.PaymentID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lead Time Violation", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		booking, err := service.CreatePayLaterOrder(ctx, uuid.New().String(), &models.CreatePayLaterOrderRequest{
			Items: models.LineItems{
				{ServiceID: "svc-1", Price: 1500, Quantity: 1},
			},
			Amount:        1500,
			ScheduledDate: time.Now().Add(time.Hour),
		})
		assert.True(t, apperrors.IsValidation(err))
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Amount Mismatch", func(t *testing.T) {
		service, mock, cleanup := newPaymentService(t, &fakeGateway{})
		defer cleanup()

		booking, err := service.CreatePayLaterOrder(ctx, uuid.New().String(), &models.CreatePayLaterOrderRequest{
			Items: models.LineItems{
				{ServiceID: "svc-1", Price: 1500, Quantity: 1},
			},
			Amount:        2000,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		assert.True(t, apperrors.IsValidation(err))
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
