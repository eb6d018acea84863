package checkout

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrEmptyCart is returned before any transaction is opened.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	// ErrInvalidLine marks a cart line that violates the checkout
	// preconditions (non-positive quantity, negative price).
	ErrInvalidLine = errors.New("invalid cart line")

	// ErrTransient is returned after the retry budget is exhausted on
	// lock-wait timeouts and deadlock aborts.
	ErrTransient = errors.New("checkout aborted by transient store failure")
)

// DuplicateLineError reports a cart with two lines for the same product.
// The cart layer must merge lines before invoking checkout.
type DuplicateLineError struct {
	ProductID int64
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("duplicate cart line for product %d", e.ProductID)
}

// ProductNotFoundError reports a cart line whose product no longer exists.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InsufficientStockError reports the first line whose requested quantity
// exceeds the stock observed under lock. Nothing has been committed.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// PersistenceError wraps a non-retryable store failure. The transaction has
// been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Postgres error codes that warrant a rollback-and-retry.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return true
	}
	return false
}
