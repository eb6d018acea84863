package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// StockLedger owns the per-product available quantity. The mutating path
// always runs inside a caller-held transaction under a row lock; browse pages
// read through ProductRepository without locking and tolerate staleness.
type StockLedger struct {
	db *sql.DB
}

func NewStockLedger(db *sql.DB) *StockLedger {
	return &StockLedger{db: db}
}

// LockForUpdate acquires an exclusive row lock on the product and returns the
// quantity observed under that lock. The lock is held until tx resolves.
func (s *StockLedger) LockForUpdate(ctx context.Context, tx *sql.Tx, productID int64) (int, error) {
	var qty int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE id = $1 FOR UPDATE`,
		productID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock product %d: %w", productID, err)
	}
	return qty, nil
}

// Decrement reduces stock within the caller's transaction. The row must
// already be locked via LockForUpdate and the availability check passed.
func (s *StockLedger) Decrement(ctx context.Context, tx *sql.Tx, productID int64, amount int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET quantity = quantity - $1 WHERE id = $2`,
		amount, productID)
	if err != nil {
		return fmt.Errorf("decrement product %d: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement product %d: %w", productID, err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Release returns previously decremented stock, used when a paid order has to
// be compensated outside the checkout path.
func (s *StockLedger) Release(ctx context.Context, tx *sql.Tx, productID int64, amount int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET quantity = quantity + $1 WHERE id = $2`,
		amount, productID)
	if err != nil {
		return fmt.Errorf("release product %d: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release product %d: %w", productID, err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
