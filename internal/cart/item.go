package cart

import (
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/shopspring/decimal"
)

// MaxQuantity bounds a single cart line.
const MaxQuantity = 99

// Item is one cart line. MenuItem is a snapshot taken when the line was added.
type Item struct {
	MenuItem menu.Item `json:"menuItem"`
	Quantity int       `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.MenuItem.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums price*quantity over items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count sums quantities over items.
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func indexOf(items []Item, itemID string) int {
	for i, it := range items {
		if it.MenuItem.ID == itemID {
			return i
		}
	}
	return -1
}

// Contains reports whether the cart has a line for itemID.
func Contains(items []Item, itemID string) bool { return indexOf(items, itemID) >= 0 }

// Find returns the line for itemID.
func Find(items []Item, itemID string) (Item, bool) {
	if i := indexOf(items, itemID); i >= 0 {
		return items[i], true
	}
	return Item{}, false
}
