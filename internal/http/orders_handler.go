package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/jlkwl/supermarket/internal/domain"
	"github.com/jlkwl/supermarket/internal/repository"
)

// OrderReader is the read side of the order repository.
type OrderReader interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error)
	ListAll(ctx context.Context) ([]domain.OrderSummary, error)
	GetInvoice(ctx context.Context, orderID int64) (*domain.Invoice, error)
}

type OrdersHandler struct {
	orders OrderReader
}

func NewOrdersHandler(orders OrderReader) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type OrderSummaryDTO struct {
	OrderID     int64  `json:"order_id"`
	UserName    string `json:"user_name"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
	OrderDate   string `json:"order_date"`
}

type InvoiceLineDTO struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url,omitempty"`
	Quantity    int    `json:"quantity"`
	PriceAtTime string `json:"price_at_time"`
}

type InvoiceDTO struct {
	OrderID     int64            `json:"order_id"`
	Status      string           `json:"status"`
	TotalAmount string           `json:"total_amount"`
	OrderDate   string           `json:"order_date"`
	BuyerName   string           `json:"buyer_name"`
	BuyerEmail  string           `json:"buyer_email"`
	Address     string           `json:"address"`
	Contact     string           `json:"contact"`
	Items       []InvoiceLineDTO `json:"items"`
}

func toSummaryDTOs(orders []domain.OrderSummary) []OrderSummaryDTO {
	out := make([]OrderSummaryDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderSummaryDTO{
			OrderID:     o.OrderID,
			UserName:    o.UserName,
			TotalAmount: o.TotalAmount.StringFixed(2),
			Status:      string(o.Status),
			OrderDate:   o.OrderDate.Format("2006-01-02 15:04:05"),
		})
	}
	return out
}

// GET /api/v1/orders — order history of the logged-in user
func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), p.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list orders")
		return
	}
	respondJSON(w, http.StatusOK, toSummaryDTOs(orders))
}

// GET /api/v1/admin/orders — every order
func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list orders")
		return
	}
	respondJSON(w, http.StatusOK, toSummaryDTOs(orders))
}

// GET /api/v1/orders/{id} — invoice view, owner or admin only
func (h *OrdersHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	invoice, err := h.orders.GetInvoice(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load order")
		return
	}

	if invoice.Order.UserID != p.UserID && !p.IsAdmin() {
		respondError(w, http.StatusForbidden, "forbidden", "this order belongs to another user")
		return
	}

	out := InvoiceDTO{
		OrderID:     invoice.Order.ID,
		Status:      string(invoice.Order.Status),
		TotalAmount: invoice.Order.TotalAmount.StringFixed(2),
		OrderDate:   invoice.Order.CreatedAt.Format("2006-01-02 15:04:05"),
		BuyerName:   invoice.Buyer.Username,
		BuyerEmail:  invoice.Buyer.Email,
		Address:     invoice.Buyer.Address,
		Contact:     invoice.Buyer.Contact,
	}
	for _, item := range invoice.Items {
		out.Items = append(out.Items, InvoiceLineDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Quantity:    item.Quantity,
			PriceAtTime: item.PriceAtTime.StringFixed(2),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
