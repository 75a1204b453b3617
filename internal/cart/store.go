package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const defaultMaxRetries = 5

// Store keeps one JSON list per user under cart:{user_id} with a sliding TTL.
//
// Every mutation is a read-modify-write guarded by WATCH on the cart key, so a
// concurrent writer makes EXEC fail and the mutation is replayed on fresh data
// instead of silently overwriting it.
type Store struct {
	rdb        redis.UniversalClient
	ttl        time.Duration
	log        *logger.Logger
	maxRetries int
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = redisx.TTLCart
	}
	return &Store{rdb: rdb, ttl: ttl, log: log, maxRetries: defaultMaxRetries}
}

// GetCart returns an empty slice when the key is missing or holds garbage.
// Only transport errors are returned.
func (s *Store) GetCart(ctx context.Context, userID int64) ([]Item, error) {
	return s.load(ctx, s.rdb, userID)
}

// AddToCart merges into an existing line. A merge that would push the line
// past MaxQuantity writes nothing and returns ErrLineLimit.
func (s *Store) AddToCart(ctx context.Context, userID int64, item menu.Item, quantity int) error {
	var over bool
	err := s.mutate(ctx, userID, func(items []Item) ([]Item, bool) {
		over = false
		if i := indexOf(items, item.ID); i >= 0 {
			if items[i].Quantity+quantity > MaxQuantity {
				over = true
				return items, false
			}
			items[i].Quantity += quantity
			return items, true
		}
		return append(items, Item{MenuItem: item, Quantity: quantity}), true
	})
	if err == nil && over {
		return ErrLineLimit
	}
	return err
}

// UpdateQuantity sets the line quantity; quantity <= 0 removes the line.
// Nothing is written when the item is not in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, userID int64, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, userID, itemID)
	}
	return s.mutate(ctx, userID, func(items []Item) ([]Item, bool) {
		i := indexOf(items, itemID)
		if i < 0 {
			return items, false
		}
		items[i].Quantity = quantity
		return items, true
	})
}

// RemoveFromCart deletes the key instead of storing an empty list.
func (s *Store) RemoveFromCart(ctx context.Context, userID int64, itemID string) error {
	return s.mutate(ctx, userID, func(items []Item) ([]Item, bool) {
		i := indexOf(items, itemID)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
}

func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, redisx.CartKey(userID)).Err()
}

func (s *Store) GetCartTotal(ctx context.Context, userID int64) (decimal.Decimal, error) {
	items, err := s.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(items), nil
}

func (s *Store) GetCartItemsCount(ctx context.Context, userID int64) (int, error) {
	items, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Count(items), nil
}

// GetActiveCartsCount walks the keyspace with SCAN; it never blocks Redis like KEYS would.
func (s *Store) GetActiveCartsCount(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, redisx.PatternCart, 500).Result()
		if err != nil {
			return 0, err
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func (s *Store) load(ctx context.Context, rdb redis.Cmdable, userID int64) ([]Item, error) {
	raw, err := rdb.Get(ctx, redisx.CartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Error("cart.decode", err, map[string]any{"user_id": userID})
		return []Item{}, nil
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// mutate applies fn to the current list under WATCH. fn reports whether it
// changed anything; unchanged lists are not written back.
func (s *Store) mutate(ctx context.Context, userID int64, fn func([]Item) ([]Item, bool)) error {
	key := redisx.CartKey(userID)
	txf := func(tx *redis.Tx) error {
		items, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		next, changed := fn(items)
		if !changed {
			return nil
		}
		var payload []byte
		if len(next) > 0 {
			if payload, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode cart: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.log.Debug("cart.retry", map[string]any{"user_id": userID, "attempt": attempt + 1})
	}
	return ErrConcurrentUpdate
}
