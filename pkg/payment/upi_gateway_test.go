package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(handler http.HandlerFunc) (*UPIGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	gateway := NewUPIGateway(UPIConfig{
		APIURL:      server.URL,
		APIKey:      "test-key",
		MerchantVPA: "homenest@upi",
		Timeout:     2 * time.Second,
	})
	return gateway, server
}

func TestUPICreateIntent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/intents", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"transaction_id":"txn-123","qr_code":"upi-qr://txn-123","upi_link":"upi://pay?tr=txn-123"}`))
		})
		defer server.Close()

		intent, err := gateway.CreateIntent(context.Background(), 1500)
		require.NoError(t, err)
		assert.Equal(t, "txn-123", intent.TransactionID)
		assert.Equal(t, "upi-qr://txn-123", intent.QRCode)
	})

	t.Run("Gateway Error Code", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"err_code":"AMOUNT_LIMIT","message":"amount exceeds limit"}`))
		})
		defer server.Close()

		intent, err := gateway.CreateIntent(context.Background(), 1500)
		assert.Error(t, err)
		assert.Nil(t, intent)
		assert.Contains(t, err.Error(), "AMOUNT_LIMIT")
	})

	t.Run("HTTP Error", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		defer server.Close()

		intent, err := gateway.CreateIntent(context.Background(), 1500)
		assert.Error(t, err)
		assert.Nil(t, intent)
		assert.Contains(t, err.Error(), "HTTP 500")
	})

	t.Run("Missing Transaction ID", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})
		defer server.Close()

		intent, err := gateway.CreateIntent(context.Background(), 1500)
		assert.Error(t, err)
		assert.Nil(t, intent)
	})

	t.Run("Context Cancelled", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(time.Second)
		})
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		intent, err := gateway.CreateIntent(ctx, 1500)
		assert.Error(t, err)
		assert.Nil(t, intent)
	})
}

func TestUPIQueryStatus(t *testing.T) {
	t.Run("Settled", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/intents/txn-123", r.URL.Path)

			w.Write([]byte(`{"transaction_id":"txn-123","status":"settled"}`))
		})
		defer server.Close()

		status, err := gateway.QueryStatus(context.Background(), "txn-123")
		require.NoError(t, err)
		assert.Equal(t, StatusSettled, status)
	})

	t.Run("Pending", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"transaction_id":"txn-123","status":"pending"}`))
		})
		defer server.Close()

		status, err := gateway.QueryStatus(context.Background(), "txn-123")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)
	})

	t.Run("Unknown Status Rejected", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"transaction_id":"txn-123","status":"reversed"}`))
		})
		defer server.Close()

		status, err := gateway.QueryStatus(context.Background(), "txn-123")
		assert.Error(t, err)
		assert.Empty(t, status)
		assert.Contains(t, err.Error(), "unknown status")
	})

	t.Run("Gateway Error Code", func(t *testing.T) {
		gateway, server := newTestGateway(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"err_code":"TXN_NOT_FOUND","message":"no such transaction"}`))
		})
		defer server.Close()

		status, err := gateway.QueryStatus(context.Background(), "txn-missing")
		assert.Error(t, err)
		assert.Empty(t, status)
		assert.Contains(t, err.Error(), "TXN_NOT_FOUND")
	})
}

func TestStubGateway(t *testing.T) {
	gateway := NewStubGateway()
	ctx := context.Background()

	t.Run("Intents Auto-Settle", func(t *testing.T) {
		intent, err := gateway.CreateIntent(ctx, 1500)
		require.NoError(t, err)
		assert.NotEmpty(t, intent.TransactionID)
		assert.Contains(t, intent.QRCode, intent.TransactionID)

		status, err := gateway.QueryStatus(ctx, intent.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, StatusSettled, status)
	})

	t.Run("Unknown Transaction", func(t *testing.T) {
		status, err := gateway.QueryStatus(ctx, "txn-unknown")
		assert.Error(t, err)
		assert.Empty(t, status)
	})
}
