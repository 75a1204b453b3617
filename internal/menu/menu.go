// Package menu is the static, process-wide catalog of purchasable items.
package menu

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryShawarma Category = "shawarma"
	CategoryDrinks   Category = "drinks"
)

var Categories = []Category{CategoryShawarma, CategoryDrinks}

func (c Category) Valid() bool {
	return c == CategoryShawarma || c == CategoryDrinks
}

func (c Category) Title() string {
	switch c {
	case CategoryShawarma:
		return "🌯 Шаурма"
	case CategoryDrinks:
		return "🥤 Напитки"
	}
	return string(c)
}

// Item is an immutable menu entry. Carts embed a copy of it.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Photo       string          `json:"photo,omitempty"`
}

// Catalog indexes a fixed item list. Safe for concurrent reads.
type Catalog struct {
	items []Item
	byID  map[string]Item
	byCat map[Category][]Item
}

// NewCatalog validates items once; the catalog is never mutated afterwards.
func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[string]Item, len(items)),
		byCat: make(map[Category][]Item),
	}
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("menu item %q: empty id", it.Name)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("menu item %s: duplicate id", it.ID)
		}
		if !it.Price.IsPositive() {
			return nil, fmt.Errorf("menu item %s: price must be > 0", it.ID)
		}
		if !it.Category.Valid() {
			return nil, fmt.Errorf("menu item %s: unknown category %q", it.ID, it.Category)
		}
		c.items = append(c.items, it)
		c.byID[it.ID] = it
		c.byCat[it.Category] = append(c.byCat[it.Category], it)
	}
	return c, nil
}

// Default returns the built-in menu.
func Default() *Catalog {
	c, err := NewCatalog(defaultItems)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) ItemByID(id string) (Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// ItemsByCategory returns a copy; unknown categories yield an empty slice.
func (c *Catalog) ItemsByCategory(cat Category) []Item {
	src := c.byCat[cat]
	out := make([]Item, len(src))
	copy(out, src)
	return out
}

func (c *Catalog) All() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}
