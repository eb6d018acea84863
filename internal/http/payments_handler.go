package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jlkwl/supermarket/internal/payment"
)

// PayPalGateway is the slice of the PayPal client the handlers need.
type PayPalGateway interface {
	CreateOrder(ctx context.Context, total decimal.Decimal, currency string) (*payment.PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.PayPalOrder, error)
}

// NETSGateway is the slice of the NETS QR client the handlers need.
type NETSGateway interface {
	RequestQR(ctx context.Context, total decimal.Decimal) (*payment.QRCode, error)
	QueryStatus(ctx context.Context, txnRetrievalRef string) (*payment.PaymentStatus, error)
}

type PaymentsHandler struct {
	paypal   PayPalGateway
	nets     NETSGateway
	currency string
}

func NewPaymentsHandler(paypal PayPalGateway, nets NETSGateway, currency string) *PaymentsHandler {
	return &PaymentsHandler{paypal: paypal, nets: nets, currency: currency}
}

type PaymentAmountDTO struct {
	Total string `json:"total"`
}

// POST /api/v1/payments/paypal/orders
func (h *PaymentsHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	total, ok := decodeAmount(w, r)
	if !ok {
		return
	}

	order, err := h.paypal.CreateOrder(r.Context(), total, h.currency)
	if err != nil {
		respondError(w, http.StatusBadGateway, "paypal_error", "could not create PayPal order")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// POST /api/v1/payments/paypal/orders/{id}/capture
func (h *PaymentsHandler) CapturePayPalOrder(w http.ResponseWriter, r *http.Request) {
	orderID := pathString(r, "id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_id", "order id is required")
		return
	}

	order, err := h.paypal.CaptureOrder(r.Context(), orderID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "paypal_error", "could not capture PayPal order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type NETSQRResponseDTO struct {
	TxnRetrievalRef string `json:"txn_retrieval_ref"`
	QRCodeURL       string `json:"qr_code_url"`
	ResponseCode    string `json:"response_code"`
}

// POST /api/v1/payments/nets/qr
func (h *PaymentsHandler) RequestNETSQR(w http.ResponseWriter, r *http.Request) {
	total, ok := decodeAmount(w, r)
	if !ok {
		return
	}

	qr, err := h.nets.RequestQR(r.Context(), total)
	if err != nil {
		respondError(w, http.StatusBadGateway, "nets_error", "could not request NETS QR code")
		return
	}
	if !qr.OK() {
		msg := qr.ErrorMessage
		if msg == "" {
			msg = "NETS returned an invalid response"
		}
		respondErrorDetails(w, http.StatusBadGateway, "nets_rejected", msg,
			map[string]string{"response_code": qr.ResponseCode})
		return
	}

	respondJSON(w, http.StatusCreated, NETSQRResponseDTO{
		TxnRetrievalRef: qr.TxnRetrievalRef,
		QRCodeURL:       "data:image/png;base64," + qr.QRCodeBase64,
		ResponseCode:    qr.ResponseCode,
	})
}

type NETSStatusResponseDTO struct {
	TxnRetrievalRef string `json:"txn_retrieval_ref"`
	Paid            bool   `json:"paid"`
	Failed          bool   `json:"failed"`
	ResponseCode    string `json:"response_code"`
}

// GET /api/v1/payments/nets/status/{ref}
func (h *PaymentsHandler) NETSStatus(w http.ResponseWriter, r *http.Request) {
	ref := pathString(r, "ref")
	if ref == "" {
		respondError(w, http.StatusBadRequest, "invalid_ref", "txn retrieval ref is required")
		return
	}

	status, err := h.nets.QueryStatus(r.Context(), ref)
	if err != nil {
		respondError(w, http.StatusBadGateway, "nets_error", "could not query payment status")
		return
	}
	respondJSON(w, http.StatusOK, NETSStatusResponseDTO{
		TxnRetrievalRef: status.TxnRetrievalRef,
		Paid:            status.Paid(),
		Failed:          status.Failed(),
		ResponseCode:    status.ResponseCode,
	})
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req PaymentAmountDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return decimal.Zero, false
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil || !total.IsPositive() {
		respondError(w, http.StatusBadRequest, "invalid_amount", "total must be a positive decimal")
		return decimal.Zero, false
	}
	return total, true
}
