package checkout

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlkwl/supermarket/internal/domain"
	"github.com/jlkwl/supermarket/internal/repository"
)

type fakeLedger struct {
	stock       map[int64]int
	lockErrs    map[int64][]error
	lockOrder   []int64
	decremented map[int64]int
	decErr      error
}

func newFakeLedger(stock map[int64]int) *fakeLedger {
	return &fakeLedger{
		stock:       stock,
		lockErrs:    make(map[int64][]error),
		decremented: make(map[int64]int),
	}
}

func (f *fakeLedger) failLockOnce(productID int64, err error) {
	f.lockErrs[productID] = append(f.lockErrs[productID], err)
}

func (f *fakeLedger) LockForUpdate(_ context.Context, _ *sql.Tx, productID int64) (int, error) {
	f.lockOrder = append(f.lockOrder, productID)
	if errs := f.lockErrs[productID]; len(errs) > 0 {
		err := errs[0]
		f.lockErrs[productID] = errs[1:]
		return 0, err
	}
	qty, ok := f.stock[productID]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	return qty, nil
}

func (f *fakeLedger) Decrement(_ context.Context, _ *sql.Tx, productID int64, amount int) error {
	if f.decErr != nil {
		return f.decErr
	}
	f.decremented[productID] += amount
	f.stock[productID] -= amount
	return nil
}

type fakeOrderWriter struct {
	nextID    int64
	insertErr error

	insertedUser  int64
	insertedTotal decimal.Decimal
	lines         []domain.OrderLine
}

func (f *fakeOrderWriter) InsertOrder(_ context.Context, _ *sql.Tx, userID int64, total decimal.Decimal, _ domain.OrderStatus) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.insertedUser = userID
	f.insertedTotal = total
	return f.nextID, nil
}

func (f *fakeOrderWriter) InsertOrderLines(_ context.Context, _ *sql.Tx, _ int64, lines []domain.OrderLine) error {
	f.lines = append(f.lines, lines...)
	return nil
}

type outboxRecord struct {
	eventType   string
	aggregateID string
	payload     []byte
}

type fakeOutbox struct {
	events []outboxRecord
}

func (f *fakeOutbox) InsertEvent(_ context.Context, _ *sql.Tx, eventType, aggregateID string, payload []byte) error {
	f.events = append(f.events, outboxRecord{eventType, aggregateID, payload})
	return nil
}

type fakeClearer struct {
	cleared []int64
	err     error
}

func (f *fakeClearer) Clear(_ context.Context, userID int64) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, userID)
	return nil
}

func newTestEngine(t *testing.T, ledger *fakeLedger, orders *fakeOrderWriter, clearer *fakeClearer) (*Engine, sqlmock.Sqlmock, *fakeOutbox) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	outbox := &fakeOutbox{}
	return NewEngine(db, ledger, orders, outbox, clearer), mock, outbox
}

func lines(ls ...domain.CartLine) []domain.CartLine { return ls }

func line(productID int64, qty int, price string) domain.CartLine {
	return domain.CartLine{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestCheckoutSuccess(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10, 2: 10})
	orders := &fakeOrderWriter{nextID: 42}
	clearer := &fakeClearer{}
	engine, mock, outbox := newTestEngine(t, ledger, orders, clearer)

	mock.ExpectBegin()
	mock.ExpectCommit()

	receipt, err := engine.Checkout(context.Background(), 7, lines(
		line(1, 2, "5.00"),
		line(2, 1, "15.00"),
	))
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, int64(42), receipt.OrderID)
	assert.True(t, receipt.TotalAmount.Equal(decimal.RequireFromString("25.00")),
		"expected total 25.00, got %s", receipt.TotalAmount)

	assert.Equal(t, int64(7), orders.insertedUser)
	assert.Len(t, orders.lines, 2)
	assert.Equal(t, 2, ledger.decremented[1])
	assert.Equal(t, 1, ledger.decremented[2])

	require.Len(t, outbox.events, 1)
	assert.Equal(t, EventOrderPlaced, outbox.events[0].eventType)
	assert.Equal(t, "42", outbox.events[0].aggregateID)
	assert.Contains(t, string(outbox.events[0].payload), `"total_amount":"25.00"`)

	assert.Equal(t, []int64{7}, clearer.cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutEmptyCart(t *testing.T) {
	engine, mock, _ := newTestEngine(t, newFakeLedger(nil), &fakeOrderWriter{}, &fakeClearer{})

	_, err := engine.Checkout(context.Background(), 7, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	// No transaction may be opened for an empty cart.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutInvalidQuantity(t *testing.T) {
	engine, mock, _ := newTestEngine(t, newFakeLedger(nil), &fakeOrderWriter{}, &fakeClearer{})

	_, err := engine.Checkout(context.Background(), 7, lines(line(1, 0, "5.00")))
	assert.ErrorIs(t, err, ErrInvalidLine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutNegativePrice(t *testing.T) {
	engine, mock, _ := newTestEngine(t, newFakeLedger(nil), &fakeOrderWriter{}, &fakeClearer{})

	_, err := engine.Checkout(context.Background(), 7, lines(line(1, 1, "-1.00")))
	assert.ErrorIs(t, err, ErrInvalidLine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutDuplicateLine(t *testing.T) {
	engine, mock, _ := newTestEngine(t, newFakeLedger(nil), &fakeOrderWriter{}, &fakeClearer{})

	_, err := engine.Checkout(context.Background(), 7, lines(
		line(3, 1, "5.00"),
		line(3, 2, "5.00"),
	))

	var dup *DuplicateLineError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, int64(3), dup.ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutInsufficientStock(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10, 2: 0})
	orders := &fakeOrderWriter{nextID: 42}
	clearer := &fakeClearer{}
	engine, mock, outbox := newTestEngine(t, ledger, orders, clearer)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := engine.Checkout(context.Background(), 7, lines(
		line(1, 2, "5.00"),
		line(2, 1, "15.00"),
	))

	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(2), short.ProductID)
	assert.Equal(t, 0, short.Available)
	assert.Equal(t, 1, short.Requested)

	// A shortfall on any line means nothing was written anywhere.
	assert.Empty(t, ledger.decremented)
	assert.Zero(t, orders.insertedUser)
	assert.Empty(t, outbox.events)
	assert.Empty(t, clearer.cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutProductNotFound(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10})
	engine, mock, _ := newTestEngine(t, ledger, &fakeOrderWriter{}, &fakeClearer{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := engine.Checkout(context.Background(), 7, lines(
		line(1, 1, "5.00"),
		line(99, 1, "5.00"),
	))

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(99), notFound.ProductID)
	assert.Empty(t, ledger.decremented)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutLocksInAscendingProductOrder(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10, 3: 10, 5: 10})
	orders := &fakeOrderWriter{nextID: 42}
	engine, mock, _ := newTestEngine(t, ledger, orders, &fakeClearer{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := engine.Checkout(context.Background(), 7, lines(
		line(5, 1, "1.00"),
		line(1, 1, "1.00"),
		line(3, 1, "1.00"),
	))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 5}, ledger.lockOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRetriesTransientFailure(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10})
	ledger.failLockOnce(1, &pq.Error{Code: "40P01"})
	orders := &fakeOrderWriter{nextID: 42}
	clearer := &fakeClearer{}
	engine, mock, _ := newTestEngine(t, ledger, orders, clearer)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	receipt, err := engine.Checkout(context.Background(), 7, lines(line(1, 1, "5.00")))
	require.NoError(t, err)
	assert.Equal(t, int64(42), receipt.OrderID)
	assert.Equal(t, []int64{7}, clearer.cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutTransientBudgetExhausted(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10})
	for i := 0; i < 3; i++ {
		ledger.failLockOnce(1, &pq.Error{Code: "40001"})
	}
	clearer := &fakeClearer{}
	engine, mock, _ := newTestEngine(t, ledger, &fakeOrderWriter{}, clearer)

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	_, err := engine.Checkout(context.Background(), 7, lines(line(1, 1, "5.00")))
	assert.ErrorIs(t, err, ErrTransient)
	assert.Empty(t, clearer.cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutPersistenceFailureDoesNotRetry(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10})
	orders := &fakeOrderWriter{insertErr: errors.New("disk on fire")}
	engine, mock, _ := newTestEngine(t, ledger, orders, &fakeClearer{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := engine.Checkout(context.Background(), 7, lines(line(1, 1, "5.00")))

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert order", pe.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutCartClearFailureIsNonFatal(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{1: 10})
	orders := &fakeOrderWriter{nextID: 42}
	clearer := &fakeClearer{err: errors.New("mongo unreachable")}
	engine, mock, _ := newTestEngine(t, ledger, orders, clearer)

	mock.ExpectBegin()
	mock.ExpectCommit()

	receipt, err := engine.Checkout(context.Background(), 7, lines(line(1, 1, "5.00")))
	require.NoError(t, err)
	assert.Equal(t, int64(42), receipt.OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&pq.Error{Code: "40001"}))
	assert.True(t, isTransient(&pq.Error{Code: "40P01"}))
	assert.True(t, isTransient(&pq.Error{Code: "55P03"}))
	assert.False(t, isTransient(&pq.Error{Code: "23505"}))
	assert.False(t, isTransient(errors.New("plain")))
}
