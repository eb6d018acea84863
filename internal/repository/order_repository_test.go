package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlkwl/supermarket/internal/domain"
)

func TestInsertOrderReturnsGeneratedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)
	total := decimal.RequireFromString("25.00")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO orders (user_id, total_amount, status) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs(int64(7), total, "PLACED").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	tx := beginTx(t, db)

	orderID, err := repo.InsertOrder(context.Background(), tx, 7, total, domain.OrderStatusPlaced)
	require.NoError(t, err)
	assert.Equal(t, int64(42), orderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrderLinesWritesEachLine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)
	insertSQL := regexp.QuoteMeta(
		`INSERT INTO order_items (order_id, product_id, quantity, price_at_time) VALUES ($1, $2, $3, $4)`)

	mock.ExpectBegin()
	mock.ExpectPrepare(insertSQL)
	mock.ExpectExec(insertSQL).
		WithArgs(int64(42), int64(1), 2, decimal.RequireFromString("5.00")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertSQL).
		WithArgs(int64(42), int64(2), 1, decimal.RequireFromString("15.00")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx := beginTx(t, db)

	err = repo.InsertOrderLines(context.Background(), tx, 42, []domain.OrderLine{
		{OrderID: 42, ProductID: 1, Quantity: 2, PriceAtTime: decimal.RequireFromString("5.00")},
		{OrderID: 42, ProductID: 2, Quantity: 1, PriceAtTime: decimal.RequireFromString("15.00")},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUserScansSummaries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)
	placedAt := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT o.id, u.username, o.total_amount, o.status, o.created_at").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "username", "total_amount", "status", "created_at"}).
			AddRow(int64(42), "alice", "25.00", "PLACED", placedAt).
			AddRow(int64(41), "alice", "9.50", "PLACED", placedAt.Add(-time.Hour)))

	orders, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(42), orders[0].OrderID)
	assert.Equal(t, "alice", orders[0].UserName)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("25.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvoiceNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOrderRepository(db)

	mock.ExpectQuery("SELECT o.id, o.user_id, o.total_amount").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetInvoice(context.Background(), 404)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
