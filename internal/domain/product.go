package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	Name      string
	Category  string
	Price     decimal.Decimal
	Quantity  int
	ImageURL  string
	CreatedAt time.Time
}

// InStock reports whether the requested quantity is currently available.
// Display-path helper only; the checkout engine re-checks under a row lock.
func (p Product) InStock(qty int) bool {
	return p.Quantity >= qty
}
