package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
)

type checkoutReq struct {
	UserID    int64  `json:"userId" validate:"required,gt=0"`
	Username  string `json:"username"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

type listMeta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// queryInt returns def when the parameter is absent.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, CodeValidation, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (a *API) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := a.Orders.Checkout(ctx, orders.CheckoutRequest{
		User: orders.User{
			ID:        req.UserID,
			Username:  req.Username,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	writeData(w, code, res, nil)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	f := orders.ListFilter{Status: orders.Status(r.URL.Query().Get("status")), Limit: limit, Offset: offset}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := a.Orders.ListOrders(ctx, f)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if out == nil {
		out = []orders.OrderDetail{}
	}
	writeData(w, http.StatusOK, out, listMeta{Count: len(out), Limit: limit, Offset: offset})
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	d, err := a.Orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, d, nil)
}

func (a *API) orderStats(w http.ResponseWriter, r *http.Request) {
	top, ok := queryInt(w, r, "top", orders.DefaultTopItems)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := a.Orders.Stats(ctx, top)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, st, nil)
}

func (a *API) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := a.Orders.UpdateStatus(ctx, chi.URLParam(r, "id"), orders.Status(req.Status))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, d, nil)
}

func (a *API) userOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", orders.DefaultUserOrdersLimit)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := a.Orders.ListUserOrders(ctx, userID, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeData(w, http.StatusOK, out, nil)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	st, err := a.Orders.UserStats(ctx, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, st, nil)
}
