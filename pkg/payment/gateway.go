// Package payment wraps the external UPI payment gateway. The core
// treats the gateway as a bounded dependency: calls carry a context
// deadline and callers retry at most once before surfacing the failure.
package payment

import "context"

// Status is the gateway-side state of a transaction
type Status string

const (
	StatusSettled Status = "settled"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Intent is the result of creating a payment intent with the gateway
type Intent struct {
	TransactionID string `json:"transaction_id"`
	QRCode        string `json:"qr_code"`
	UPILink       string `json:"upi_link"`
}

// Gateway is the payment gateway contract used by the payment service
type Gateway interface {
	// CreateIntent registers a payment intent for the given amount and
	// returns the QR code and UPI deep link to present to the customer
	CreateIntent(ctx context.Context, amount float64) (*Intent, error)

	// QueryStatus reports the settlement status of a transaction
	QueryStatus(ctx context.Context, transactionID string) (Status, error)
}
