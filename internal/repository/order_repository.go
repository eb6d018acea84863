package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jlkwl/supermarket/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository persists order headers and line items. The write side runs
// inside the checkout engine's transaction; the read side serves the order
// history and invoice views.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// InsertOrder creates the order header and returns its generated id.
func (r *OrderRepository) InsertOrder(ctx context.Context, tx *sql.Tx, userID int64, total decimal.Decimal, status domain.OrderStatus) (int64, error) {
	var orderID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, total_amount, status) VALUES ($1, $2, $3) RETURNING id`,
		userID, total, string(status)).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return orderID, nil
}

// InsertOrderLines writes one row per cart line, freezing the price at
// checkout time.
func (r *OrderRepository) InsertOrderLines(ctx context.Context, tx *sql.Tx, orderID int64, lines []domain.OrderLine) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare order lines: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx, orderID, line.ProductID, line.Quantity, line.PriceAtTime); err != nil {
			return fmt.Errorf("insert order line for product %d: %w", line.ProductID, err)
		}
	}
	return nil
}

// ListByUser returns the user's order history, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.OrderSummary, error) {
	query := `
		SELECT o.id, u.username, o.total_amount, o.status, o.created_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`
	return r.listSummaries(ctx, query, userID)
}

// ListAll returns every order, newest first. Admin view.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.OrderSummary, error) {
	query := `
		SELECT o.id, u.username, o.total_amount, o.status, o.created_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC`
	return r.listSummaries(ctx, query)
}

func (r *OrderRepository) listSummaries(ctx context.Context, query string, args ...any) ([]domain.OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.OrderSummary
	for rows.Next() {
		var o domain.OrderSummary
		if err := rows.Scan(&o.OrderID, &o.UserName, &o.TotalAmount, &o.Status, &o.OrderDate); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

// GetInvoice returns the order header, buyer details and product-joined line
// items for the invoice page.
func (r *OrderRepository) GetInvoice(ctx context.Context, orderID int64) (*domain.Invoice, error) {
	headerQuery := `
		SELECT o.id, o.user_id, o.total_amount, o.status, o.created_at,
		       u.id, u.username, u.email, u.address, u.contact, u.role, u.created_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		WHERE o.id = $1`

	var inv domain.Invoice
	err := r.db.QueryRowContext(ctx, headerQuery, orderID).Scan(
		&inv.Order.ID,
		&inv.Order.UserID,
		&inv.Order.TotalAmount,
		&inv.Order.Status,
		&inv.Order.CreatedAt,
		&inv.Buyer.ID,
		&inv.Buyer.Username,
		&inv.Buyer.Email,
		&inv.Buyer.Address,
		&inv.Buyer.Contact,
		&inv.Buyer.Role,
		&inv.Buyer.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order %d: %w", orderID, err)
	}

	itemsQuery := `
		SELECT oi.product_id, p.product_name, p.image_url, oi.quantity, oi.price_at_time
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := r.db.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order %d items: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InvoiceLine
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.ImageURL, &item.Quantity, &item.PriceAtTime); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &inv, nil
}
