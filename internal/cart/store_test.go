package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewStore(client, time.Hour, logger.Discard())
}

func item(id string, price int64) menu.Item {
	return menu.Item{ID: id, Name: "item " + id, Price: decimal.NewFromInt(price), Category: menu.CategoryShawarma}
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

func TestStore_EmptyCart(t *testing.T) {
	_, s := setupStore(t)
	items, err := s.GetCart(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestStore_AddAggregatesSameItem(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	for _, q := range []int{2, 3, 1} {
		require.NoError(t, s.AddToCart(ctx, 1, item("a", 100), q))
	}
	require.NoError(t, s.AddToCart(ctx, 1, item("b", 50), 1))

	items, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].MenuItem.ID)
	assert.Equal(t, 6, items[0].Quantity)
	assert.Equal(t, "b", items[1].MenuItem.ID)
}

func TestStore_AddStopsAtLineLimit(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 100), 60))
	err := s.AddToCart(ctx, 1, item("a", 100), 60)
	assert.ErrorIs(t, err, ErrLineLimit)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 100), 39))
	items, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, MaxQuantity, items[0].Quantity)

	assert.ErrorIs(t, s.AddToCart(ctx, 1, item("a", 100), 1), ErrLineLimit)
}

func TestStore_ExampleScenario(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 100), 2))
	total, err := s.GetCartTotal(ctx, 1)
	require.NoError(t, err)
	assertDecimal(t, 200, total)
	count, err := s.GetCartItemsCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 100), 1))
	total, _ = s.GetCartTotal(ctx, 1)
	count, _ = s.GetCartItemsCount(ctx, 1)
	assertDecimal(t, 300, total)
	assert.Equal(t, 3, count)

	require.NoError(t, s.UpdateQuantity(ctx, 1, "a", 0))
	items, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, mr.Exists("cart:1"))
}

func TestStore_RemoveLastItemDeletesKey(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, 5, item("a", 10), 1))
	require.NoError(t, s.AddToCart(ctx, 5, item("b", 10), 1))
	require.NoError(t, s.RemoveFromCart(ctx, 5, "a"))
	assert.True(t, mr.Exists("cart:5"))

	require.NoError(t, s.RemoveFromCart(ctx, 5, "b"))
	assert.False(t, mr.Exists("cart:5"))
}

func TestStore_NegativeQuantityRemoves(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 10), 4))
	require.NoError(t, s.UpdateQuantity(ctx, 1, "a", -3))
	assert.False(t, mr.Exists("cart:1"))
}

func TestStore_UpdateQuantitySetsValueAndRefreshesTTL(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 10), 1))
	mr.FastForward(40 * time.Minute)
	require.NoError(t, s.UpdateQuantity(ctx, 1, "a", 7))

	assert.Equal(t, time.Hour, mr.TTL("cart:1"))
	count, err := s.GetCartItemsCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestStore_UpdateAbsentItemDoesNotWrite(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateQuantity(ctx, 1, "ghost", 3))
	assert.False(t, mr.Exists("cart:1"))

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 10), 1))
	mr.FastForward(10 * time.Minute)
	require.NoError(t, s.UpdateQuantity(ctx, 1, "ghost", 3))
	assert.Equal(t, 50*time.Minute, mr.TTL("cart:1"))
}

func TestStore_CartExpiresAfterTTL(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToCart(ctx, 1, item("a", 10), 1))
	mr.FastForward(61 * time.Minute)

	items, err := s.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_CorruptPayloadReadsAsEmpty(t *testing.T) {
	mr, s := setupStore(t)
	require.NoError(t, mr.Set("cart:9", "{not json"))

	items, err := s.GetCart(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_ClearAndActiveCount(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	for uid := int64(1); uid <= 3; uid++ {
		require.NoError(t, s.AddToCart(ctx, uid, item("a", 10), 1))
	}
	require.NoError(t, mr.Set("idem:order:create:x", "1"))

	n, err := s.GetActiveCartsCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, s.ClearCart(ctx, 2))
	require.NoError(t, s.ClearCart(ctx, 2))
	n, err = s.GetActiveCartsCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStore_ConcurrentAddsAreNotLost(t *testing.T) {
	_, s := setupStore(t)
	s.maxRetries = 200
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.AddToCart(ctx, 1, item("a", 10), 1)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := s.GetCartItemsCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, writers, count)
}

func TestStore_PropagatesConnectionErrors(t *testing.T) {
	mr, s := setupStore(t)
	mr.Close()

	_, err := s.GetCart(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, s.AddToCart(context.Background(), 1, item("a", 1), 1))
}
