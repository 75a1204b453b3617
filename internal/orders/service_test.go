package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/apperr"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extKey struct {
	userID int64
	key    string
}

// memRepo is an all-or-nothing in-memory Repository.
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	orders   map[int64]*OrderDetail
	byExt    map[extKey]int64
	failNext error
	calls    int
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[int64]*OrderDetail{}, byExt: map[extKey]int64{}}
}

func (m *memRepo) CreateOrder(_ context.Context, o NewOrder) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return "", false, err
	}
	ek := extKey{o.User.ID, o.ExternalID}
	if id, ok := m.byExt[ek]; ok && o.ExternalID != "" {
		return strconv.FormatInt(id, 10), true, nil
	}
	m.nextID++
	d := &OrderDetail{Order: Order{ID: m.nextID, UserID: o.User.ID, Status: StatusPending, TotalPrice: o.TotalPrice}, User: o.User}
	for _, l := range o.Items {
		d.Items = append(d.Items, OrderItem{
			OrderID: m.nextID, MenuItemID: l.MenuItemID, Quantity: l.Quantity, Price: l.Price,
			Subtotal: l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	m.orders[m.nextID] = d
	if o.ExternalID != "" {
		m.byExt[ek] = m.nextID
	}
	return strconv.FormatInt(m.nextID, 10), false, nil
}

func (m *memRepo) GetOrderByID(_ context.Context, id string) (*OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(id, 10, 64)
	d, ok := m.orders[n]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) GetOrderStatus(ctx context.Context, id string) (Status, error) {
	d, _ := m.GetOrderByID(ctx, id)
	if d == nil {
		return "", ErrOrderNotFound
	}
	return d.Status, nil
}

func (m *memRepo) GetUserOrders(_ context.Context, userID int64, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for id := m.nextID; id > 0 && len(out) < limit; id-- {
		if d, ok := m.orders[id]; ok && d.UserID == userID {
			out = append(out, d.Order)
		}
	}
	return out, nil
}

func (m *memRepo) ListOrders(_ context.Context, f ListFilter) ([]OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OrderDetail
	for id := m.nextID; id > 0 && len(out) < f.Limit; id-- {
		if d, ok := m.orders[id]; ok && (f.Status == "" || d.Status == f.Status) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateOrderStatus(_ context.Context, id string, from, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(id, 10, 64)
	d, ok := m.orders[n]
	if !ok || d.Status != from {
		return ErrStatusConflict
	}
	d.Status = to
	return nil
}

func (m *memRepo) GetOrderStats(context.Context, int) (Stats, error) { return Stats{}, nil }

func (m *memRepo) GetUserStats(_ context.Context, userID int64) (UserStats, error) {
	return UserStats{UserID: userID}, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	envs   []Envelope
}

func (p *capturePublisher) Publish(_ context.Context, topic string, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.envs = append(p.envs, env)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *memRepo
	store *cart.Store
	pub   *capturePublisher
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithMenu(t, menuItem("a", 250), menuItem("b", 100), menuItem("c", 80))
}

func newFixtureWithMenu(t *testing.T, items ...menu.Item) *fixture {
	t.Helper()
	catalog, err := menu.NewCatalog(items)
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := cart.NewStore(rdb, time.Hour, logger.Discard())
	repo := newMemRepo()
	pub := &capturePublisher{}
	svc := NewService(Deps{
		Repo:      repo,
		Cart:      store,
		Menu:      catalog,
		Idem:      &redisx.IdempotencyCache{RDB: rdb},
		Publisher: pub,
		Log:       logger.Discard(),
		Producer:  "test",
	})
	return &fixture{svc: svc, repo: repo, store: store, pub: pub, mr: mr}
}

func menuItem(id string, price int64) menu.Item {
	return menu.Item{ID: id, Name: "item " + id, Price: decimal.NewFromInt(price), Category: menu.CategoryShawarma}
}

func (f *fixture) fillCart(t *testing.T, userID int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.AddToCart(ctx, userID, menuItem("a", 250), 1))
	require.NoError(t, f.store.AddToCart(ctx, userID, menuItem("b", 100), 2))
}

func TestCheckout_CreatesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)

	res, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1, FirstName: "Bob"}})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, 3, res.ItemsCount)
	assert.True(t, decimal.NewFromInt(450).Equal(res.Total))

	d, err := f.svc.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(450).Equal(d.TotalPrice))
	assert.Len(t, d.Items, 2)
	assert.Equal(t, StatusPending, d.Status)

	items, err := f.store.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.Len(t, f.pub.envs, 1)
	assert.Equal(t, TopicOrderCreated, f.pub.topics[0])
	assert.Equal(t, EventOrderCreated, f.pub.envs[0].EventType)
	assert.Equal(t, res.OrderID, f.pub.envs[0].CorrelationID)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{User: User{ID: 2}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindEmptyCart, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.repo.calls)
	assert.Empty(t, f.pub.envs)
}

func TestCheckout_FailedOrderLeavesCartIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)
	before, err := f.store.GetCart(ctx, 1)
	require.NoError(t, err)

	f.repo.failNext = errors.New("tx aborted")
	_, err = f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "Failed to create order", apperr.MessageOf(err, ""))

	after, err := f.store.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, f.pub.envs)
}

func TestCheckout_LinePricesComeFromCurrentMenu(t *testing.T) {
	f := newFixtureWithMenu(t, menuItem("a", 270))
	ctx := context.Background()
	// Added while "a" still cost 250.
	require.NoError(t, f.store.AddToCart(ctx, 1, menuItem("a", 250), 2))

	res, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}})
	require.NoError(t, err)

	d, err := f.svc.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(270).Equal(d.Items[0].Price))
	assert.True(t, decimal.NewFromInt(500).Equal(d.TotalPrice))

	require.Len(t, f.pub.envs, 1)
	var p OrderCreatedPayload
	require.NoError(t, json.Unmarshal(f.pub.envs[0].Payload, &p))
	assert.True(t, decimal.NewFromInt(270).Equal(p.Items[0].Price))
}

func TestCheckout_ItemGoneFromMenuKeepsCart(t *testing.T) {
	f := newFixtureWithMenu(t, menuItem("b", 100))
	ctx := context.Background()
	f.fillCart(t, 1)

	_, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemUnavailable)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Zero(t, f.repo.calls)

	items, err := f.store.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCheckout_IdempotencyKeyReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)

	first, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}, IdempotencyKey: "k-55"})
	require.NoError(t, err)
	assert.True(t, f.mr.Exists("idem:order:create:1:k-55"))

	// A retry of the same request after new items were added.
	require.NoError(t, f.store.AddToCart(ctx, 1, menuItem("c", 80), 1))
	second, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}, IdempotencyKey: "k-55"})
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, f.repo.calls)
	assert.Len(t, f.pub.envs, 1)

	items, err := f.store.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1, "a replay must not clear the current cart")
	assert.Equal(t, "c", items[0].MenuItem.ID)
}

func TestCheckout_IdempotencyKeyIsPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)
	f.fillCart(t, 2)

	first, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}, IdempotencyKey: "shared"})
	require.NoError(t, err)

	second, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 2}, IdempotencyKey: "shared"})
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 2, f.repo.calls)

	d, err := f.svc.GetOrder(ctx, second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.UserID)

	items, err := f.store.GetCart(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckout_RepoLevelReplaySkipsEventAndKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)
	_, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}, IdempotencyKey: "k"})
	require.NoError(t, err)

	f.mr.Del("idem:order:create:1:k")
	f.fillCart(t, 1)
	res, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}, IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Len(t, f.pub.envs, 1)

	items, err := f.store.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)
	res, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: 1}})
	require.NoError(t, err)

	d, err := f.svc.UpdateStatus(ctx, res.OrderID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, d.Status)
	require.Len(t, f.pub.envs, 2)
	assert.Equal(t, TopicOrderStatusChanged, f.pub.topics[1])

	_, err = f.svc.UpdateStatus(ctx, res.OrderID, StatusDelivered)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, res.OrderID, "cooking")
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, "404", StatusConfirmed)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetOrder(context.Background(), "12345")
	assert.True(t, apperr.IsNotFound(err))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders_ValidatesAndClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListOrders(ctx, ListFilter{Status: "weird"})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	for uid := int64(1); uid <= 3; uid++ {
		f.fillCart(t, uid)
		_, err := f.svc.Checkout(ctx, CheckoutRequest{User: User{ID: uid}})
		require.NoError(t, err)
	}
	all, err := f.svc.ListOrders(ctx, ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.svc.ListUserOrders(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 10))
	assert.Equal(t, 7, clampLimit(7, 10))
	assert.Equal(t, MaxListLimit, clampLimit(5000, 10))
}
