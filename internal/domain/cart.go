package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user shopping cart as stored in the cart collection.
type Cart struct {
	ID        string     `bson:"_id,omitempty"`
	UserID    int64      `bson:"user_id"`
	Items     []CartItem `bson:"items"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// CartItem freezes the unit price at the moment the product was added.
type CartItem struct {
	ProductID int64           `bson:"product_id"`
	Quantity  int             `bson:"quantity"`
	UnitPrice decimal.Decimal `bson:"unit_price"`
	AddedAt   time.Time       `bson:"added_at"`
}

// CartLine is the read-only checkout input: one product, its quantity and the
// unit price captured when it entered the cart.
type CartLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Lines converts the stored cart into the snapshot shape the checkout engine
// consumes, preserving item order.
func (c *Cart) Lines() []CartLine {
	if c == nil || len(c.Items) == 0 {
		return nil
	}
	lines := make([]CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}

// Total sums quantity times unit price over all items.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
