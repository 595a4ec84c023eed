package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UPIGateway implements Gateway against a UPI intent API
type UPIGateway struct {
	apiURL      string
	apiKey      string
	merchantVPA string
	client      *http.Client
}

// UPIConfig holds configuration for the UPI gateway client
type UPIConfig struct {
	APIURL      string
	APIKey      string
	MerchantVPA string
	Timeout     time.Duration
}

// NewUPIGateway creates a new UPI gateway client
func NewUPIGateway(config UPIConfig) *UPIGateway {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UPIGateway{
		apiURL:      config.APIURL,
		apiKey:      config.APIKey,
		merchantVPA: config.MerchantVPA,
		client:      &http.Client{Timeout: timeout},
	}
}

// createIntentRequest is the gateway intent creation payload
type createIntentRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	MerchantVPA string  `json:"merchant_vpa"`
}

// createIntentResponse is the gateway intent creation response
type createIntentResponse struct {
	TransactionID string `json:"transaction_id"`
	QRCode        string `json:"qr_code"`
	UPILink       string `json:"upi_link"`
	ErrCode       string `json:"err_code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// queryStatusResponse is the gateway status response
type queryStatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"` // settled, pending, failed
	ErrCode       string `json:"err_code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CreateIntent registers a payment intent with the gateway
func (g *UPIGateway) CreateIntent(ctx context.Context, amount float64) (*Intent, error) {
	payload := createIntentRequest{
		Amount:      amount,
		Currency:    "INR",
		MerchantVPA: g.merchantVPA,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result createIntentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}
	if result.ErrCode != "" {
		return nil, fmt.Errorf("gateway error %s: %s", result.ErrCode, result.Message)
	}
	if result.TransactionID == "" {
		return nil, fmt.Errorf("gateway returned empty transaction id")
	}

	return &Intent{
		TransactionID: result.TransactionID,
		QRCode:        result.QRCode,
		UPILink:       result.UPILink,
	}, nil
}

// QueryStatus reports the settlement status of a transaction
func (g *UPIGateway) QueryStatus(ctx context.Context, transactionID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/intents/"+transactionID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read status response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result queryStatusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse status response: %w", err)
	}
	if result.ErrCode != "" {
		return "", fmt.Errorf("gateway error %s: %s", result.ErrCode, result.Message)
	}

	switch Status(result.Status) {
	case StatusSettled, StatusPending, StatusFailed:
		return Status(result.Status), nil
	default:
		return "", fmt.Errorf("gateway returned unknown status %q", result.Status)
	}
}
