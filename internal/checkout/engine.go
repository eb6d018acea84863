package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jlkwl/supermarket/internal/domain"
	"github.com/jlkwl/supermarket/internal/repository"
)

// StockLedger is the per-product quantity store. Both operations participate
// in the transaction passed to them; LockForUpdate must hold a row lock until
// that transaction resolves.
type StockLedger interface {
	LockForUpdate(ctx context.Context, tx *sql.Tx, productID int64) (int, error)
	Decrement(ctx context.Context, tx *sql.Tx, productID int64, amount int) error
}

// OrderWriter persists the order header and its lines inside the engine's
// transaction. The engine owns begin/commit/rollback.
type OrderWriter interface {
	InsertOrder(ctx context.Context, tx *sql.Tx, userID int64, total decimal.Decimal, status domain.OrderStatus) (int64, error)
	InsertOrderLines(ctx context.Context, tx *sql.Tx, orderID int64, lines []domain.OrderLine) error
}

// OutboxWriter records an order-placed event in the same transaction so the
// poller can publish it after commit.
type OutboxWriter interface {
	InsertEvent(ctx context.Context, tx *sql.Tx, eventType, aggregateID string, payload []byte) error
}

// CartClearer empties the user's cart after a committed checkout. Failures
// here are logged, never surfaced: the committed order stands.
type CartClearer interface {
	Clear(ctx context.Context, userID int64) error
}

// Receipt is the confirmation returned to the caller on commit.
type Receipt struct {
	OrderID     int64
	TotalAmount decimal.Decimal
}

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond

	// EventOrderPlaced is the outbox event type written on every commit.
	EventOrderPlaced = "order.placed"
)

// Engine converts a cart snapshot into a persisted order atomically:
// all lines are stock-checked under row locks before any mutation, then the
// order, its lines and the stock decrements commit together or not at all.
type Engine struct {
	db     *sql.DB
	stock  StockLedger
	orders OrderWriter
	outbox OutboxWriter
	carts  CartClearer
}

func NewEngine(db *sql.DB, stock StockLedger, orders OrderWriter, outbox OutboxWriter, carts CartClearer) *Engine {
	return &Engine{
		db:     db,
		stock:  stock,
		orders: orders,
		outbox: outbox,
		carts:  carts,
	}
}

// Checkout validates the snapshot, then runs the transactional placement with
// a small retry budget for lock-wait timeouts and deadlock aborts. On success
// the user's cart is cleared best-effort outside the transaction boundary.
func (e *Engine) Checkout(ctx context.Context, userID int64, lines []domain.CartLine) (*Receipt, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}

	var receipt *Receipt
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		receipt, err = e.placeOrder(ctx, userID, lines, total)
		if err == nil {
			break
		}
		if !isTransient(err) {
			return nil, err
		}
		log.Printf("checkout for user %d hit transient store error (attempt %d/%d): %v",
			userID, attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if clearErr := e.carts.Clear(ctx, userID); clearErr != nil {
		// Non-fatal: the order is committed, the stale cart will be
		// overwritten on the next add.
		log.Printf("order %d committed but cart clear failed for user %d: %v",
			receipt.OrderID, userID, clearErr)
	}

	return receipt, nil
}

// placeOrder runs one attempt of the checkout transaction.
func (e *Engine) placeOrder(ctx context.Context, userID int64, lines []domain.CartLine, total decimal.Decimal) (_ *Receipt, err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "begin transaction", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Printf("checkout rollback failed: %v", rbErr)
			}
		}
	}()

	// Lock product rows in ascending id order so concurrent checkouts
	// sharing products cannot form a deadlock cycle.
	byProduct := make(map[int64]domain.CartLine, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		byProduct[line.ProductID] = line
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	available := make(map[int64]int, len(ids))
	for _, id := range ids {
		qty, lockErr := e.stock.LockForUpdate(ctx, tx, id)
		if errors.Is(lockErr, repository.ErrProductNotFound) {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		if lockErr != nil {
			return nil, storeFailure("lock stock", lockErr)
		}
		available[id] = qty
	}

	// Every line is checked before any stock moves: a shortfall on the last
	// line must not leave earlier lines decremented.
	for _, id := range ids {
		line := byProduct[id]
		if line.Quantity > available[id] {
			return nil, &InsufficientStockError{
				ProductID: id,
				Available: available[id],
				Requested: line.Quantity,
			}
		}
	}

	orderID, err := e.orders.InsertOrder(ctx, tx, userID, total, domain.OrderStatusPlaced)
	if err != nil {
		return nil, storeFailure("insert order", err)
	}

	orderLines := make([]domain.OrderLine, 0, len(lines))
	for _, line := range lines {
		orderLines = append(orderLines, domain.OrderLine{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceAtTime: line.UnitPrice,
		})
	}
	if err := e.orders.InsertOrderLines(ctx, tx, orderID, orderLines); err != nil {
		return nil, storeFailure("insert order lines", err)
	}

	for _, id := range ids {
		if err := e.stock.Decrement(ctx, tx, id, byProduct[id].Quantity); err != nil {
			return nil, storeFailure("decrement stock", err)
		}
	}

	if e.outbox != nil {
		payload, marshalErr := orderPlacedPayload(orderID, userID, total, orderLines)
		if marshalErr != nil {
			return nil, &PersistenceError{Op: "marshal outbox payload", Err: marshalErr}
		}
		if err := e.outbox.InsertEvent(ctx, tx, EventOrderPlaced, fmt.Sprint(orderID), payload); err != nil {
			return nil, storeFailure("insert outbox event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isTransient(err) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "commit", Err: err}
	}
	committed = true

	return &Receipt{OrderID: orderID, TotalAmount: total}, nil
}

// storeFailure keeps transient driver errors bare so the retry loop can see
// them; everything else becomes a non-retryable PersistenceError.
func storeFailure(op string, err error) error {
	if isTransient(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func validateLines(lines []domain.CartLine) error {
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("product %d: quantity must be positive: %w", line.ProductID, ErrInvalidLine)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("product %d: price must not be negative: %w", line.ProductID, ErrInvalidLine)
		}
		if _, dup := seen[line.ProductID]; dup {
			return &DuplicateLineError{ProductID: line.ProductID}
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

type placedLine struct {
	ProductID   int64  `json:"product_id"`
	Quantity    int    `json:"quantity"`
	PriceAtTime string `json:"price_at_time"`
}

type placedEvent struct {
	OrderID     int64        `json:"order_id"`
	UserID      int64        `json:"user_id"`
	TotalAmount string       `json:"total_amount"`
	Status      string       `json:"status"`
	Lines       []placedLine `json:"lines"`
	PlacedAt    time.Time    `json:"placed_at"`
}

func orderPlacedPayload(orderID, userID int64, total decimal.Decimal, lines []domain.OrderLine) ([]byte, error) {
	event := placedEvent{
		OrderID:     orderID,
		UserID:      userID,
		TotalAmount: total.StringFixed(2),
		Status:      domain.OrderStatusPlaced.String(),
		PlacedAt:    time.Now().UTC(),
	}
	for _, line := range lines {
		event.Lines = append(event.Lines, placedLine{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceAtTime: line.PriceAtTime.StringFixed(2),
		})
	}
	return json.Marshal(event)
}
