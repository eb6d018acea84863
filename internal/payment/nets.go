package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

const defaultNETSBaseURL = "https://sandbox.nets.openapipaas.com"

var ErrInvalidAmount = errors.New("payment amount must be positive")

// NETSClient requests NETS QR codes and polls transaction status against the
// openapipaas sandbox gateway.
type NETSClient struct {
	baseURL    string
	apiKey     string
	projectID  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

func NewNETSClient(baseURL, apiKey, projectID string) *NETSClient {
	if baseURL == "" {
		baseURL = defaultNETSBaseURL
	}
	return &NETSClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		projectID:  projectID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    newBreaker("nets"),
	}
}

// QRCode is the gateway's answer to a QR request. OK means a scannable code
// came back; the transaction itself may still be pending.
type QRCode struct {
	TxnRetrievalRef string
	QRCodeBase64    string
	ResponseCode    string
	Instruction     string
	ErrorMessage    string
}

func (q QRCode) OK() bool {
	return q.ResponseCode == "00" && q.QRCodeBase64 != ""
}

// PaymentStatus is the polled state of a QR transaction.
type PaymentStatus struct {
	TxnRetrievalRef string
	TxnStatus       int
	ResponseCode    string
}

// Sandbox txn_status values.
const (
	txnStatusPaid   = 1
	txnStatusFailed = 2
)

func (s PaymentStatus) Paid() bool   { return s.TxnStatus == txnStatusPaid }
func (s PaymentStatus) Failed() bool { return s.TxnStatus == txnStatusFailed }

type netsEnvelope struct {
	Result struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
}

// RequestQR asks the gateway for a QR code covering the given total.
func (c *NETSClient) RequestQR(ctx context.Context, total decimal.Decimal) (*QRCode, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidAmount
	}

	amount, _ := total.Round(2).Float64()
	body := map[string]any{
		// Sandbox default transaction id, per gateway docs.
		"txn_id":         "sandbox_nets|m|8ff8e5b6-d43e-4786-8ac5-7accf8c5bd9b",
		"amt_in_dollars": amount,
		"notify_mobile":  0,
	}

	data, err := c.post(ctx, "/api/v1/common/payments/nets-qr/request", body)
	if err != nil {
		return nil, err
	}

	var qr struct {
		TxnRetrievalRef string `json:"txn_retrieval_ref"`
		QRCode          string `json:"qr_code"`
		ResponseCode    string `json:"response_code"`
		Instruction     string `json:"instruction"`
		ErrorMessage    string `json:"error_message"`
	}
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, fmt.Errorf("decode qr response: %w", err)
	}

	return &QRCode{
		TxnRetrievalRef: qr.TxnRetrievalRef,
		QRCodeBase64:    qr.QRCode,
		ResponseCode:    qr.ResponseCode,
		Instruction:     qr.Instruction,
		ErrorMessage:    qr.ErrorMessage,
	}, nil
}

// QueryStatus polls the transaction referenced by a prior RequestQR.
func (c *NETSClient) QueryStatus(ctx context.Context, txnRetrievalRef string) (*PaymentStatus, error) {
	body := map[string]any{"txn_retrieval_ref": txnRetrievalRef}

	data, err := c.post(ctx, "/api/v1/common/payments/nets/query", body)
	if err != nil {
		return nil, err
	}

	var status struct {
		TxnStatus    json.Number `json:"txn_status"`
		ResponseCode string      `json:"response_code"`
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	txnStatus, _ := status.TxnStatus.Int64()
	return &PaymentStatus{
		TxnRetrievalRef: txnRetrievalRef,
		TxnStatus:       int(txnStatus),
		ResponseCode:    status.ResponseCode,
	}, nil
}

func (c *NETSClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("project-id", c.projectID)

	resp, err := doGuarded(c.breaker, c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("nets request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nets request failed with status %d", resp.StatusCode)
	}

	var envelope netsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode nets response: %w", err)
	}
	if len(envelope.Result.Data) == 0 {
		return nil, errors.New("nets returned an empty result")
	}
	return envelope.Result.Data, nil
}
