package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Order struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Status     Status          `json:"status"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Items      []OrderItem     `json:"items"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// OrderItem.Price is the price captured when the order was placed.
// CurrentPrice is the menu price now, for display only.
type OrderItem struct {
	OrderID      int64               `json:"orderId"`
	MenuItemID   string              `json:"menuItemId"`
	Name         string              `json:"name"`
	Quantity     int                 `json:"quantity"`
	Price        decimal.Decimal     `json:"price"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
}

type OrderDetail struct {
	Order
	User User `json:"user"`
}

// LineInput is one cart line handed to CreateOrder.
type LineInput struct {
	MenuItemID string
	Quantity   int
	Price      decimal.Decimal
}

type NewOrder struct {
	User User
	// ExternalID deduplicates checkout retries; empty disables dedup.
	ExternalID string
	Items      []LineInput
	TotalPrice decimal.Decimal
}

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

type TopItem struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
}

type Stats struct {
	ByStatus          map[Status]int64 `json:"byStatus"`
	TotalOrders       int64            `json:"totalOrders"`
	TotalRevenue      decimal.Decimal  `json:"totalRevenue"`
	TodayOrders       int64            `json:"todayOrders"`
	TodayRevenue      decimal.Decimal  `json:"todayRevenue"`
	AverageOrderValue decimal.Decimal  `json:"averageOrderValue"`
	TopItems          []TopItem        `json:"topItems"`
}

type UserStats struct {
	UserID        int64           `json:"userId"`
	OrdersCount   int64           `json:"ordersCount"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	LastOrderDate *time.Time      `json:"lastOrderDate"`
}
