package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jlkwl/supermarket/internal/cart"
	"github.com/jlkwl/supermarket/internal/cart/store"
	"github.com/jlkwl/supermarket/internal/domain"
	"github.com/jlkwl/supermarket/internal/repository"
)

// CartService is the cart surface exposed over HTTP.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type CartResponseDTO struct {
	Items []CartItemDTO `json:"items"`
	Total string        `json:"total"`
}

func toCartDTO(c *domain.Cart) CartResponseDTO {
	out := CartResponseDTO{
		Items: make([]CartItemDTO, 0, len(c.Items)),
		Total: c.Total().StringFixed(2),
	}
	for _, item := range c.Items {
		line := domain.CartLine{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
		out.Items = append(out.Items, CartItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal().StringFixed(2),
		})
	}
	return out
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())

	c, err := h.carts.GetCart(r.Context(), p.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load cart")
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := h.carts.AddItem(r.Context(), p.UserID, req.ProductID, req.Quantity); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		if errors.Is(err, cart.ErrQuantityInvalid) {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not add item")
		return
	}

	h.respondCart(w, r, p.UserID, http.StatusCreated)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())
	productID, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), p.UserID, productID, req.Quantity); err != nil {
		if errors.Is(err, store.ErrItemNotFound) || errors.Is(err, store.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "item_not_found", "item not in cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not update quantity")
		return
	}

	h.respondCart(w, r, p.UserID, http.StatusOK)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())
	productID, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(r.Context(), p.UserID, productID); err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "cart_not_found", "cart is empty")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not remove item")
		return
	}

	h.respondCart(w, r, p.UserID, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())

	if err := h.carts.Clear(r.Context(), p.UserID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not clear cart")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, userID int64, status int) {
	c, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load cart")
		return
	}
	respondJSON(w, status, toCartDTO(c))
}
