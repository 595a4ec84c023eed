package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StubGateway is the development-mode gateway. Intents auto-settle so
// checkout can be exercised end to end without a real gateway account.
type StubGateway struct {
	mu      sync.Mutex
	intents map[string]Status
}

// NewStubGateway creates a new stub gateway
func NewStubGateway() *StubGateway {
	return &StubGateway{intents: make(map[string]Status)}
}

// CreateIntent registers a fake intent that reports settled immediately
func (g *StubGateway) CreateIntent(ctx context.Context, amount float64) (*Intent, error) {
	txnID := "dev-" + uuid.New().String()

	g.mu.Lock()
	g.intents[txnID] = StatusSettled
	g.mu.Unlock()

	return &Intent{
		TransactionID: txnID,
		QRCode:        fmt.Sprintf("upi-qr://%s?amount=%.2f", txnID, amount),
		UPILink:       fmt.Sprintf("upi://pay?tr=%s&am=%.2f", txnID, amount),
	}, nil
}

// QueryStatus reports the status of a stub intent
func (g *StubGateway) QueryStatus(ctx context.Context, transactionID string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.intents[transactionID]
	if !ok {
		return "", fmt.Errorf("unknown transaction %s", transactionID)
	}
	return status, nil
}
