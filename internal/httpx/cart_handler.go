package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
)

type addToCartReq struct {
	UserID   int64  `json:"userId" validate:"required,gt=0"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity *int   `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type updateCartReq struct {
	UserID   int64  `json:"userId" validate:"required,gt=0"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity *int   `json:"quantity" validate:"required,min=0,max=99"`
}

type cartMeta struct {
	Total      string `json:"total"`
	ItemsCount int    `json:"itemsCount"`
	UserID     int64  `json:"userId"`
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeValidation, "userId must be a positive integer")
		return 0, false
	}
	return id, true
}

func (a *API) listMenu(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, a.Menu.All(), nil)
}

func (a *API) listCategory(w http.ResponseWriter, r *http.Request) {
	c := menu.Category(chi.URLParam(r, "category"))
	if !c.Valid() {
		writeError(w, http.StatusNotFound, CodeNotFound, "Category not found")
		return
	}
	writeData(w, http.StatusOK, a.Menu.ItemsByCategory(c), nil)
}

func (a *API) getCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := a.Cart.GetCart(ctx, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	items := v.Items
	if items == nil {
		items = []cart.Item{}
	}
	writeData(w, http.StatusOK, items, cartMeta{Total: v.Total.StringFixed(2), ItemsCount: v.ItemsCount, UserID: userID})
}

func (a *API) getCartTotal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := a.Cart.GetCartTotal(ctx, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, cartMeta{Total: t.Total.StringFixed(2), ItemsCount: t.ItemsCount, UserID: userID}, nil)
}

func (a *API) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if !decode(w, r, &req) {
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Cart.AddToCart(ctx, cart.AddRequest{UserID: req.UserID, ItemID: req.ItemID, Quantity: qty}); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, "Item added to cart")
}

func (a *API) updateCart(w http.ResponseWriter, r *http.Request) {
	var req updateCartReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Cart.UpdateQuantity(ctx, cart.UpdateRequest{UserID: req.UserID, ItemID: req.ItemID, Quantity: *req.Quantity}); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, "Cart updated")
}

func (a *API) removeFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Cart.RemoveFromCart(ctx, userID, chi.URLParam(r, "itemId")); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, "Item removed from cart")
}

func (a *API) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Cart.ClearCart(ctx, userID); err != nil {
		writeAppError(w, err)
		return
	}
	writeMessage(w, "Cart cleared")
}
