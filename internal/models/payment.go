package models

import "time"

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentMethodQR       PaymentMethod = "qr"
	PaymentMethodPayLater PaymentMethod = "pay_later"
)

// Payment represents a payment attempt tracked against an external
// transaction. For QR payments the booking is created only once the
// gateway reports the transaction settled; for pay-later the booking is
// created immediately and the payment stays pending until the due date.
type Payment struct {
	ID            string        `json:"id" db:"id"`
	UserID        string        `json:"user_id" db:"user_id"`
	Amount        float64       `json:"amount" db:"amount"`
	Status        PaymentStatus `json:"status" db:"status"`
	Method        PaymentMethod `json:"method" db:"method"`
	TransactionID string        `json:"transaction_id" db:"transaction_id"`
	BookingID     *string       `json:"booking_id,omitempty" db:"booking_id"`
	QRCode        *string       `json:"qr_code,omitempty" db:"qr_code"`
	UPILink       *string       `json:"upi_link,omitempty" db:"upi_link"`
	DueDate       *time.Time    `json:"due_date,omitempty" db:"due_date"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// QRPaymentResponse is returned to the checkout surface after an intent
// has been created with the gateway
type QRPaymentResponse struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	QRCode        string  `json:"qr_code"`
	UPILink       string  `json:"upi_link"`
}
