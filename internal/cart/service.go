package cart

import (
	"context"
	"errors"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/apperr"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/shopspring/decimal"
)

const (
	msgFetchFailed  = "Failed to fetch cart"
	msgUpdateFailed = "Failed to update cart"
	msgItemNotFound = "Menu item not found"
	msgNotInCart    = "Item not found in cart"
	msgBadQuantity  = "Quantity must be between 1 and 99"
	msgLineLimit    = "Cart cannot hold more than 99 of one item"
	msgConcurrent   = "Cart was modified concurrently, try again"
)

type Catalog interface {
	ItemByID(id string) (menu.Item, bool)
}

// Recorder receives cart mutation counts; see internal/metrics.
type Recorder interface {
	CartMutation(op string)
}

type nopRecorder struct{}

func (nopRecorder) CartMutation(string) {}

type View struct {
	Items      []Item          `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"itemsCount"`
}

type Totals struct {
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"itemsCount"`
}

type AddRequest struct {
	UserID   int64
	ItemID   string
	Quantity int
}

type UpdateRequest struct {
	UserID   int64
	ItemID   string
	Quantity int
}

// Service validates against the catalog and the current cart before
// touching the store, and maps failures to apperr kinds.
type Service struct {
	store   *Store
	catalog Catalog
	log     *logger.Logger
	rec     Recorder
}

func NewService(store *Store, catalog Catalog, log *logger.Logger, rec Recorder) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{store: store, catalog: catalog, log: log, rec: rec}
}

// GetCart derives total and count from the same read as the items.
func (s *Service) GetCart(ctx context.Context, userID int64) (View, error) {
	items, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return View{}, s.internal("cart.GetCart", msgFetchFailed, userID, err)
	}
	return View{Items: items, Total: Total(items), ItemsCount: Count(items)}, nil
}

func (s *Service) GetCartTotal(ctx context.Context, userID int64) (Totals, error) {
	v, err := s.GetCart(ctx, userID)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Total: v.Total, ItemsCount: v.ItemsCount}, nil
}

func (s *Service) AddToCart(ctx context.Context, req AddRequest) error {
	const op = "cart.AddToCart"
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return apperr.Invalid(op, msgBadQuantity, ErrInvalidQuantity)
	}
	item, ok := s.catalog.ItemByID(req.ItemID)
	if !ok {
		return apperr.NotFound(op, msgItemNotFound, ErrItemNotFound)
	}
	if err := s.store.AddToCart(ctx, req.UserID, item, req.Quantity); err != nil {
		return s.mutationErr(op, req.UserID, err)
	}
	s.rec.CartMutation("add")
	return nil
}

// UpdateQuantity with quantity 0 removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, req UpdateRequest) error {
	const op = "cart.UpdateQuantity"
	if req.Quantity > MaxQuantity {
		return apperr.Invalid(op, msgBadQuantity, ErrInvalidQuantity)
	}
	if err := s.requireInCart(ctx, op, req.UserID, req.ItemID); err != nil {
		return err
	}
	if err := s.store.UpdateQuantity(ctx, req.UserID, req.ItemID, req.Quantity); err != nil {
		return s.mutationErr(op, req.UserID, err)
	}
	s.rec.CartMutation("update")
	return nil
}

func (s *Service) RemoveFromCart(ctx context.Context, userID int64, itemID string) error {
	const op = "cart.RemoveFromCart"
	if err := s.requireInCart(ctx, op, userID, itemID); err != nil {
		return err
	}
	if err := s.store.RemoveFromCart(ctx, userID, itemID); err != nil {
		return s.mutationErr(op, userID, err)
	}
	s.rec.CartMutation("remove")
	return nil
}

// ClearCart succeeds on an empty cart as well.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return s.internal("cart.ClearCart", msgUpdateFailed, userID, err)
	}
	s.rec.CartMutation("clear")
	return nil
}

func (s *Service) requireInCart(ctx context.Context, op string, userID int64, itemID string) error {
	items, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return s.internal(op, msgFetchFailed, userID, err)
	}
	if !Contains(items, itemID) {
		return apperr.NotFound(op, msgNotInCart, ErrItemNotInCart)
	}
	return nil
}

func (s *Service) mutationErr(op string, userID int64, err error) error {
	switch {
	case errors.Is(err, ErrConcurrentUpdate):
		return apperr.New(op, apperr.KindConflict, msgConcurrent, err)
	case errors.Is(err, ErrInvalidQuantity):
		return apperr.Invalid(op, msgLineLimit, err)
	}
	return s.internal(op, msgUpdateFailed, userID, err)
}

func (s *Service) internal(op, msg string, userID int64, err error) error {
	s.log.Error(op, err, map[string]any{"user_id": userID})
	return apperr.Internal(op, msg, err)
}
