package store

import (
	"context"
	"errors"

	"github.com/jlkwl/supermarket/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartStore is the persistent per-user cart. It lives outside the checkout
// transaction boundary: checkout consumes a snapshot of it and clears it
// best-effort after commit.
type CartStore interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID int64, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID int64, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID int64, productID int64) error
	DeleteCart(ctx context.Context, userID int64) error
}
