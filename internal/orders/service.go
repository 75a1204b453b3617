package orders

import (
	"context"
	"errors"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/apperr"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrItemUnavailable   = errors.New("menu item no longer available")
)

const (
	DefaultUserOrdersLimit = 10
	MaxListLimit           = 100
	DefaultTopItems        = 5
)

type CartReader interface {
	GetCart(ctx context.Context, userID int64) ([]cart.Item, error)
	ClearCart(ctx context.Context, userID int64) error
}

type Repository interface {
	CreateOrder(ctx context.Context, o NewOrder) (string, bool, error)
	GetOrderByID(ctx context.Context, orderID string) (*OrderDetail, error)
	GetOrderStatus(ctx context.Context, orderID string) (Status, error)
	GetUserOrders(ctx context.Context, userID int64, limit int) ([]Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]OrderDetail, error)
	UpdateOrderStatus(ctx context.Context, orderID string, from, to Status) error
	GetOrderStats(ctx context.Context, topN int) (Stats, error)
	GetUserStats(ctx context.Context, userID int64) (UserStats, error)
}

// IdempotencyCache keys are scoped to the user; see redisx.IdempotencyCache.
type IdempotencyCache interface {
	Lookup(ctx context.Context, userID int64, key string) (string, bool, error)
	Remember(ctx context.Context, userID int64, key, orderID string) error
}

// Catalog prices order lines at checkout time.
type Catalog interface {
	ItemByID(id string) (menu.Item, bool)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

type Recorder interface {
	OrderCreated()
	CheckoutFailed(reason string)
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated()         {}
func (nopRecorder) CheckoutFailed(string) {}

type CheckoutRequest struct {
	User           User
	IdempotencyKey string
}

type CheckoutResult struct {
	OrderID    string          `json:"orderId"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"itemsCount"`
	// Replayed is set when the idempotency key matched an earlier order.
	Replayed bool `json:"replayed"`
}

type Deps struct {
	Repo      Repository
	Cart      CartReader
	Menu      Catalog
	Idem      IdempotencyCache
	Publisher Publisher
	Recorder  Recorder
	Log       *logger.Logger
	// Producer names this service in event envelopes.
	Producer string
}

type Service struct {
	repo     Repository
	cart     CartReader
	menu     Catalog
	idem     IdempotencyCache
	pub      Publisher
	rec      Recorder
	log      *logger.Logger
	producer string
}

func NewService(d Deps) *Service {
	s := &Service{
		repo:     d.Repo,
		cart:     d.Cart,
		menu:     d.Menu,
		idem:     d.Idem,
		pub:      d.Publisher,
		rec:      d.Recorder,
		log:      d.Log,
		producer: d.Producer,
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	return s
}

// Checkout turns the user's cart into a pending order.
//
// The cart is cleared only by the call that committed the order. A replayed
// idempotency key returns the earlier order of the same user and leaves the
// current cart alone; a failure before commit leaves it exactly as it was.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	const op = "orders.Checkout"
	userID := req.User.ID

	if req.IdempotencyKey != "" && s.idem != nil {
		if id, found, err := s.idem.Lookup(ctx, userID, req.IdempotencyKey); err != nil {
			s.log.Warn("orders.idem_lookup", err, map[string]any{"user_id": userID})
		} else if found {
			return CheckoutResult{OrderID: id, Replayed: true}, nil
		}
	}

	items, err := s.cart.GetCart(ctx, userID)
	if err != nil {
		s.rec.CheckoutFailed("cart_unavailable")
		s.log.Error(op, err, map[string]any{"user_id": userID})
		return CheckoutResult{}, apperr.Internal(op, "Failed to fetch cart", err)
	}
	if len(items) == 0 {
		s.rec.CheckoutFailed("empty_cart")
		return CheckoutResult{}, apperr.New(op, apperr.KindEmptyCart, "Cart is empty", ErrEmptyCart)
	}

	// Lines carry the menu price now; the total is the cart's own sum.
	total := cart.Total(items)
	lines := make([]LineInput, 0, len(items))
	priced := make([]ItemPrice, 0, len(items))
	for _, it := range items {
		cur, ok := s.menu.ItemByID(it.MenuItem.ID)
		if !ok {
			s.rec.CheckoutFailed("item_unavailable")
			return CheckoutResult{}, apperr.NotFound(op, "Menu item "+it.MenuItem.Name+" is no longer available", ErrItemUnavailable)
		}
		lines = append(lines, LineInput{MenuItemID: cur.ID, Quantity: it.Quantity, Price: cur.Price})
		priced = append(priced, ItemPrice{MenuItemID: cur.ID, Name: cur.Name, Qty: it.Quantity, Price: cur.Price})
	}

	orderID, existed, err := s.repo.CreateOrder(ctx, NewOrder{
		User:       req.User,
		ExternalID: req.IdempotencyKey,
		Items:      lines,
		TotalPrice: total,
	})
	if err != nil {
		s.rec.CheckoutFailed("create_failed")
		s.log.Error(op, err, map[string]any{"user_id": userID, "items": len(items)})
		return CheckoutResult{}, apperr.Internal(op, "Failed to create order", err)
	}
	if req.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, userID, req.IdempotencyKey, orderID); err != nil {
			s.log.Warn("orders.idem_remember", err, map[string]any{"order_id": orderID})
		}
	}
	if existed {
		// A concurrent call with the same key committed first and owns the cart.
		return CheckoutResult{OrderID: orderID, Replayed: true}, nil
	}

	if err := s.cart.ClearCart(ctx, userID); err != nil {
		s.log.Error("orders.clear_cart", err, map[string]any{"user_id": userID, "order_id": orderID})
	}

	s.rec.OrderCreated()
	s.log.Info("orders.created", map[string]any{"order_id": orderID, "user_id": userID, "total": total.String()})
	s.publish(ctx, TopicOrderCreated, EventOrderCreated, orderID, OrderCreatedPayload{
		OrderID:    orderID,
		UserID:     userID,
		Username:   req.User.Username,
		FirstName:  req.User.FirstName,
		Items:      priced,
		TotalPrice: total,
	})
	return CheckoutResult{OrderID: orderID, Total: total, ItemsCount: cart.Count(items)}, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*OrderDetail, error) {
	const op = "orders.GetOrder"
	d, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		s.log.Error(op, err, map[string]any{"order_id": orderID})
		return nil, apperr.Internal(op, "Failed to fetch order", err)
	}
	if d == nil {
		return nil, apperr.NotFound(op, "Order not found", ErrOrderNotFound)
	}
	return d, nil
}

func (s *Service) ListUserOrders(ctx context.Context, userID int64, limit int) ([]Order, error) {
	const op = "orders.ListUserOrders"
	out, err := s.repo.GetUserOrders(ctx, userID, clampLimit(limit, DefaultUserOrdersLimit))
	if err != nil {
		s.log.Error(op, err, map[string]any{"user_id": userID})
		return nil, apperr.Internal(op, "Failed to fetch user orders", err)
	}
	return out, nil
}

func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]OrderDetail, error) {
	const op = "orders.ListOrders"
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid(op, "Unknown order status", nil)
	}
	f.Limit = clampLimit(f.Limit, 20)
	if f.Offset < 0 {
		f.Offset = 0
	}
	out, err := s.repo.ListOrders(ctx, f)
	if err != nil {
		s.log.Error(op, err, nil)
		return nil, apperr.Internal(op, "Failed to fetch orders", err)
	}
	return out, nil
}

// UpdateStatus advances an order one step along the lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status) (*OrderDetail, error) {
	const op = "orders.UpdateStatus"
	if !to.Valid() {
		return nil, apperr.Invalid(op, "Unknown order status", nil)
	}
	from, err := s.repo.GetOrderStatus(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, apperr.NotFound(op, "Order not found", err)
	}
	if err != nil {
		s.log.Error(op, err, map[string]any{"order_id": orderID})
		return nil, apperr.Internal(op, "Failed to update order status", err)
	}
	if !CanTransition(from, to) {
		return nil, apperr.Invalid(op, "Status cannot change from "+string(from)+" to "+string(to), ErrInvalidTransition)
	}
	if err := s.repo.UpdateOrderStatus(ctx, orderID, from, to); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, apperr.New(op, apperr.KindConflict, "Order status was changed by someone else", err)
		}
		s.log.Error(op, err, map[string]any{"order_id": orderID})
		return nil, apperr.Internal(op, "Failed to update order status", err)
	}

	d, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("orders.status_changed", map[string]any{"order_id": orderID, "from": from, "to": to})
	s.publish(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID: orderID, UserID: d.UserID, From: from, To: to,
	})
	return d, nil
}

func (s *Service) Stats(ctx context.Context, topN int) (Stats, error) {
	const op = "orders.Stats"
	if topN <= 0 {
		topN = DefaultTopItems
	}
	st, err := s.repo.GetOrderStats(ctx, topN)
	if err != nil {
		s.log.Error(op, err, nil)
		return Stats{}, apperr.Internal(op, "Failed to fetch order stats", err)
	}
	return st, nil
}

func (s *Service) UserStats(ctx context.Context, userID int64) (UserStats, error) {
	const op = "orders.UserStats"
	st, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		s.log.Error(op, err, map[string]any{"user_id": userID})
		return UserStats{}, apperr.Internal(op, "Failed to fetch user stats", err)
	}
	return st, nil
}

// publish is best effort: the order is already committed.
func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.pub == nil {
		return
	}
	env, err := NewEnvelope(eventType, s.producer, orderID, payload)
	if err == nil {
		err = s.pub.Publish(ctx, topic, env)
	}
	if err != nil {
		s.log.Error("orders.publish", err, map[string]any{"order_id": orderID, "event": eventType})
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
