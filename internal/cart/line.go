package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one cart row keyed by product identity.
type Line struct {
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	ImageRef string          `json:"imageRef"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Item is a product being added to the cart.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	ImageRef  string
}

func (i Item) validate() error {
	switch {
	case strings.TrimSpace(i.ProductID) == "":
		return errItemKey
	case strings.TrimSpace(i.Name) == "":
		return errItemName
	case i.Price.IsNegative():
		return errItemPrice
	}
	return nil
}

// Total sums price*quantity over lines and rounds half away from zero to two
// places. Amounts are never negative, so this is round-half-up.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum.Round(2)
}

// Count sums quantities.
func Count(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
