package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jlkwl/supermarket/internal/checkout"
	"github.com/jlkwl/supermarket/internal/domain"
)

// CartSnapshotter serves the read-only snapshot consumed by checkout.
type CartSnapshotter interface {
	Lines(ctx context.Context, userID int64) ([]domain.CartLine, error)
}

// CheckoutEngine is the order transaction engine contract.
type CheckoutEngine interface {
	Checkout(ctx context.Context, userID int64, lines []domain.CartLine) (*checkout.Receipt, error)
}

type CheckoutHandler struct {
	carts  CartSnapshotter
	engine CheckoutEngine
}

func NewCheckoutHandler(carts CartSnapshotter, engine CheckoutEngine) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, engine: engine}
}

type ReceiptDTO struct {
	OrderID     int64  `json:"order_id"`
	TotalAmount string `json:"total_amount"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())

	lines, err := h.carts.Lines(r.Context(), p.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load cart")
		return
	}

	receipt, err := h.engine.Checkout(r.Context(), p.UserID, lines)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ReceiptDTO{
		OrderID:     receipt.OrderID,
		TotalAmount: receipt.TotalAmount.StringFixed(2),
	})
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *checkout.InsufficientStockError
	var missingErr *checkout.ProductNotFoundError
	var dupErr *checkout.DuplicateLineError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart_empty", "your cart is empty")
	case errors.As(err, &stockErr):
		respondErrorDetails(w, http.StatusConflict, "insufficient_stock",
			fmt.Sprintf("only %d left in stock for product %d", stockErr.Available, stockErr.ProductID),
			map[string]any{
				"product_id": stockErr.ProductID,
				"available":  stockErr.Available,
				"requested":  stockErr.Requested,
			})
	case errors.As(err, &missingErr):
		respondErrorDetails(w, http.StatusConflict, "product_unavailable",
			"a product in your cart is no longer available",
			map[string]any{"product_id": missingErr.ProductID})
	case errors.As(err, &dupErr), errors.Is(err, checkout.ErrInvalidLine):
		respondError(w, http.StatusBadRequest, "invalid_cart", "cart contains invalid lines")
	case errors.Is(err, checkout.ErrTransient):
		respondError(w, http.StatusServiceUnavailable, "busy",
			"the store is busy, please try again")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
	}
}
