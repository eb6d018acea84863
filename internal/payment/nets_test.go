package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func netsReply(w http.ResponseWriter, data any) {
	payload := map[string]any{"result": map[string]any{"data": data}}
	json.NewEncoder(w).Encode(payload)
}

func TestNETSRequestQR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/common/payments/nets-qr/request", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("api-key"))
		assert.Equal(t, "proj-456", r.Header.Get("project-id"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 12.5, req["amt_in_dollars"])

		netsReply(w, map[string]any{
			"txn_retrieval_ref": "ref-789",
			"qr_code":           "aGVsbG8=",
			"response_code":     "00",
			"instruction":       "scan to pay",
		})
	}))
	defer srv.Close()

	client := NewNETSClient(srv.URL, "key-123", "proj-456")

	qr, err := client.RequestQR(context.Background(), decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.True(t, qr.OK())
	assert.Equal(t, "ref-789", qr.TxnRetrievalRef)
	assert.Equal(t, "aGVsbG8=", qr.QRCodeBase64)
}

func TestNETSRequestQRRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		netsReply(w, map[string]any{
			"response_code": "99",
			"error_message": "invalid amount",
		})
	}))
	defer srv.Close()

	client := NewNETSClient(srv.URL, "key", "proj")

	qr, err := client.RequestQR(context.Background(), decimal.RequireFromString("5.00"))
	require.NoError(t, err)
	assert.False(t, qr.OK())
	assert.Equal(t, "invalid amount", qr.ErrorMessage)
}

func TestNETSRequestQRNonPositiveAmount(t *testing.T) {
	client := NewNETSClient("http://localhost:1", "key", "proj")

	_, err := client.RequestQR(context.Background(), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNETSQueryStatusPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/common/payments/nets/query", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref-789", req["txn_retrieval_ref"])

		netsReply(w, map[string]any{"txn_status": 1, "response_code": "00"})
	}))
	defer srv.Close()

	client := NewNETSClient(srv.URL, "key", "proj")

	status, err := client.QueryStatus(context.Background(), "ref-789")
	require.NoError(t, err)
	assert.True(t, status.Paid())
	assert.False(t, status.Failed())
}

func TestNETSQueryStatusFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		netsReply(w, map[string]any{"txn_status": "2", "response_code": "68"})
	}))
	defer srv.Close()

	client := NewNETSClient(srv.URL, "key", "proj")

	status, err := client.QueryStatus(context.Background(), "ref-789")
	require.NoError(t, err)
	assert.True(t, status.Failed())
}

func TestNETSGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewNETSClient(srv.URL, "key", "proj")

	_, err := client.QueryStatus(context.Background(), "ref-789")
	assert.ErrorContains(t, err, "502")
}
