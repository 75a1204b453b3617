package httpx

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/ratelimit"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (cart.View, error)
	GetCartTotal(ctx context.Context, userID int64) (cart.Totals, error)
	AddToCart(ctx context.Context, req cart.AddRequest) error
	UpdateQuantity(ctx context.Context, req cart.UpdateRequest) error
	RemoveFromCart(ctx context.Context, userID int64, itemID string) error
	ClearCart(ctx context.Context, userID int64) error
}

type OrderService interface {
	Checkout(ctx context.Context, req orders.CheckoutRequest) (orders.CheckoutResult, error)
	GetOrder(ctx context.Context, orderID string) (*orders.OrderDetail, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.OrderDetail, error)
	ListUserOrders(ctx context.Context, userID int64, limit int) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.OrderDetail, error)
	Stats(ctx context.Context, topN int) (orders.Stats, error)
	UserStats(ctx context.Context, userID int64) (orders.UserStats, error)
}

type MenuCatalog interface {
	All() []menu.Item
	ItemsByCategory(c menu.Category) []menu.Item
}

// API wires the public cart/menu/checkout routes and the admin order routes.
type API struct {
	Cart       CartService
	Orders     OrderService
	Menu       MenuCatalog
	Limiter    *ratelimit.Keyed
	AdminToken string
}

func (a *API) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if a.Limiter != nil {
			r.Use(RateLimit(a.Limiter))
		}

		r.Get("/menu", a.listMenu)
		r.Get("/menu/{category}", a.listCategory)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/{userId}", a.getCart)
			r.Get("/{userId}/total", a.getCartTotal)
			r.Post("/add", a.addToCart)
			r.Put("/update", a.updateCart)
			r.Delete("/remove/{userId}/{itemId}", a.removeFromCart)
			r.Delete("/clear/{userId}", a.clearCart)
		})

		r.Post("/orders", a.checkout)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(a.AdminToken))
			r.Get("/orders", a.listOrders)
			r.Get("/orders/stats", a.orderStats)
			r.Get("/orders/{id}", a.getOrder)
			r.Put("/orders/{id}/status", a.updateOrderStatus)
			r.Get("/users/{userId}/orders", a.userOrders)
			r.Get("/users/{userId}/stats", a.userStats)
		})
	})
}
