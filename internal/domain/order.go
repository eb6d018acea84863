package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced OrderStatus = "PLACED"
)

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// Order is the header row of a completed checkout. Immutable once committed.
type Order struct {
	ID          int64
	UserID      int64
	TotalAmount decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
}

// OrderLine is one line item of an order. PriceAtTime freezes the unit price
// at checkout, independent of later catalog price changes.
type OrderLine struct {
	OrderID     int64
	ProductID   int64
	Quantity    int
	PriceAtTime decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtTime.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderSummary is the order-history row joined with the buyer, as shown on
// the "my orders" and admin order listings.
type OrderSummary struct {
	OrderID     int64
	UserName    string
	TotalAmount decimal.Decimal
	Status      OrderStatus
	OrderDate   time.Time
}

// InvoiceLine is an order line joined with its product for the invoice view.
type InvoiceLine struct {
	ProductID   int64
	ProductName string
	ImageURL    string
	Quantity    int
	PriceAtTime decimal.Decimal
}

// Invoice is the header + items view of a single order.
type Invoice struct {
	Order Order
	Buyer User
	Items []InvoiceLine
}
