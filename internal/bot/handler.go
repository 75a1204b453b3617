// Package bot turns Telegram updates into cart and order operations.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/apperr"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/ratelimit"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type CartService interface {
	GetCart(ctx context.Context, userID int64) (cart.View, error)
	AddToCart(ctx context.Context, req cart.AddRequest) error
	UpdateQuantity(ctx context.Context, req cart.UpdateRequest) error
	RemoveFromCart(ctx context.Context, userID int64, itemID string) error
	ClearCart(ctx context.Context, userID int64) error
}

type OrderService interface {
	Checkout(ctx context.Context, req orders.CheckoutRequest) (orders.CheckoutResult, error)
	ListUserOrders(ctx context.Context, userID int64, limit int) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.OrderDetail, error)
}

type Catalog interface {
	ItemByID(id string) (menu.Item, bool)
	ItemsByCategory(c menu.Category) []menu.Item
}

type Deps struct {
	API     Sender
	Cart    CartService
	Orders  OrderService
	Menu    Catalog
	Limiter *ratelimit.Keyed
	Admins  []int64
	Log     *logger.Logger
	Timeout time.Duration
}

type Handler struct {
	api     Sender
	cart    CartService
	orders  OrderService
	menu    Catalog
	limiter *ratelimit.Keyed
	admins  map[int64]bool
	log     *logger.Logger
	timeout time.Duration
	nonce   func() string
}

func New(d Deps) *Handler {
	h := &Handler{
		api:     d.API,
		cart:    d.Cart,
		orders:  d.Orders,
		menu:    d.Menu,
		limiter: d.Limiter,
		admins:  make(map[int64]bool, len(d.Admins)),
		log:     d.Log,
		timeout: d.Timeout,
		nonce:   newNonce,
	}
	for _, id := range d.Admins {
		h.admins[id] = true
	}
	if h.timeout <= 0 {
		h.timeout = 10 * time.Second
	}
	return h
}

func (h *Handler) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	switch {
	case u.CallbackQuery != nil:
		h.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		h.handleMessage(ctx, u.Message)
	}
}

func (h *Handler) allow(userID int64) bool {
	return h.limiter == nil || h.limiter.Allow(strconv.FormatInt(userID, 10))
}

func (h *Handler) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil || !h.allow(m.From.ID) {
		return
	}
	chatID := m.Chat.ID
	cmd := m.Command()
	switch {
	case cmd == "start":
		msg := tgbotapi.NewMessage(chatID, TextWelcome)
		msg.ReplyMarkup = mainKeyboard()
		h.send(msg)
	case cmd == "menu" || m.Text == BtnMenu:
		msg := tgbotapi.NewMessage(chatID, TextChooseCat)
		msg.ReplyMarkup = categoriesKeyboard()
		h.send(msg)
	case cmd == "cart" || m.Text == BtnCart:
		v, err := h.cart.GetCart(ctx, m.From.ID)
		if err != nil {
			h.send(tgbotapi.NewMessage(chatID, TextTryAgain))
			return
		}
		msg := tgbotapi.NewMessage(chatID, cartText(v))
		msg.ReplyMarkup = h.cartMarkup(v.Items)
		h.send(msg)
	case cmd == "orders" || m.Text == BtnOrders:
		h.send(tgbotapi.NewMessage(chatID, h.ordersText(ctx, m.From.ID)))
	default:
		msg := tgbotapi.NewMessage(chatID, TextUnknown)
		msg.ReplyMarkup = mainKeyboard()
		h.send(msg)
	}
}

// handleCallback always answers the query, including on failures.
func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	var answer string
	defer func() {
		if _, err := h.api.Request(tgbotapi.NewCallback(q.ID, answer)); err != nil {
			h.log.Warn("bot.answer_callback", err, map[string]any{"data": q.Data})
		}
	}()

	if q.From == nil {
		return
	}
	if !h.allow(q.From.ID) {
		answer = TextTooMany
		return
	}
	cmd, err := ParseCommand(q.Data)
	if err != nil {
		h.log.Warn("bot.parse_callback", err, map[string]any{"data": q.Data, "user_id": q.From.ID})
		answer = TextUnknownButton
		return
	}
	answer = h.dispatch(ctx, q, cmd)
}

func (h *Handler) dispatch(ctx context.Context, q *tgbotapi.CallbackQuery, cmd Command) string {
	userID := q.From.ID
	switch cmd.Action {
	case ActionMenu:
		h.edit(q, TextChooseCat, categoriesKeyboard())
	case ActionCategory:
		c := menu.Category(cmd.Arg)
		if !c.Valid() {
			return TextUnknownButton
		}
		h.edit(q, c.Title(), itemsKeyboard(h.menu.ItemsByCategory(c)))
	case ActionItem:
		it, ok := h.menu.ItemByID(cmd.Arg)
		if !ok {
			return TextItemNotFound
		}
		h.edit(q, itemText(it), itemKeyboard(it))
	case ActionAdd:
		if err := h.cart.AddToCart(ctx, cart.AddRequest{UserID: userID, ItemID: cmd.Arg, Quantity: 1}); err != nil {
			return h.failure(err)
		}
		it, _ := h.menu.ItemByID(cmd.Arg)
		return addedText(it)
	case ActionInc, ActionDec:
		return h.step(ctx, q, cmd)
	case ActionRemove:
		if err := h.cart.RemoveFromCart(ctx, userID, cmd.Arg); err != nil {
			return h.failure(err)
		}
		return h.showCart(ctx, q)
	case ActionCart:
		return h.showCart(ctx, q)
	case ActionClear:
		if err := h.cart.ClearCart(ctx, userID); err != nil {
			return h.failure(err)
		}
		h.edit(q, TextEmptyCart, h.cartMarkup(nil))
		return TextCartCleared
	case ActionCheckout:
		return h.checkout(ctx, q, cmd.Arg)
	case ActionOrders:
		h.send(tgbotapi.NewMessage(chatOf(q), h.ordersText(ctx, userID)))
	case ActionStatus:
		return h.advance(ctx, q, cmd)
	default:
		return TextUnknownButton
	}
	return ""
}

// step moves a cart line by one; reaching zero removes it.
func (h *Handler) step(ctx context.Context, q *tgbotapi.CallbackQuery, cmd Command) string {
	userID := q.From.ID
	v, err := h.cart.GetCart(ctx, userID)
	if err != nil {
		return h.failure(err)
	}
	line, ok := cart.Find(v.Items, cmd.Arg)
	if !ok {
		h.edit(q, cartText(v), h.cartMarkup(v.Items))
		return TextNotInCart
	}
	qty := line.Quantity + 1
	if cmd.Action == ActionDec {
		qty = line.Quantity - 1
	}
	if qty > cart.MaxQuantity {
		return TextMaxQuantity
	}
	if err := h.cart.UpdateQuantity(ctx, cart.UpdateRequest{UserID: userID, ItemID: cmd.Arg, Quantity: qty}); err != nil {
		return h.failure(err)
	}
	return h.showCart(ctx, q)
}

func (h *Handler) showCart(ctx context.Context, q *tgbotapi.CallbackQuery) string {
	v, err := h.cart.GetCart(ctx, q.From.ID)
	if err != nil {
		return h.failure(err)
	}
	h.edit(q, cartText(v), h.cartMarkup(v.Items))
	return ""
}

// checkout keys the order on the nonce of the pressed cart rendering. Every
// new rendering mints a new nonce, so a later checkout from the same message
// is a new order.
func (h *Handler) checkout(ctx context.Context, q *tgbotapi.CallbackQuery, nonce string) string {
	key := fmt.Sprintf("tg:%d:%s", q.From.ID, nonce)
	res, err := h.orders.Checkout(ctx, orders.CheckoutRequest{
		User: orders.User{
			ID:        q.From.ID,
			Username:  q.From.UserName,
			FirstName: q.From.FirstName,
			LastName:  q.From.LastName,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		return h.failure(err)
	}
	h.edit(q, checkoutText(res), tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		button(BtnOrders, Command{Action: ActionOrders}),
		button(BtnMenu, Command{Action: ActionMenu}),
	)))
	return "Заказ оформлен"
}

// advance applies an admin status button.
func (h *Handler) advance(ctx context.Context, q *tgbotapi.CallbackQuery, cmd Command) string {
	if !h.admins[q.From.ID] && !h.admins[chatOf(q)] {
		return TextAdminOnly
	}
	d, err := h.orders.UpdateStatus(ctx, cmd.Arg, cmd.Status)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict, apperr.KindInvalid:
			return TextBadStatus
		case apperr.KindNotFound:
			return "Заказ не найден"
		}
		return TextTryAgain
	}

	items := make([]orders.ItemPrice, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, orders.ItemPrice{MenuItemID: it.MenuItemID, Name: it.Name, Qty: it.Quantity, Price: it.Price})
	}
	text := AdminOrderText(cmd.Arg, CustomerName(d.User.Username, d.User.FirstName), items, d.TotalPrice, d.Status)
	if kb, ok := AdminStatusKeyboard(cmd.Arg, d.Status); ok {
		h.edit(q, text, kb)
	} else if q.Message != nil {
		h.send(tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text))
	}
	return d.Status.Title()
}

func (h *Handler) ordersText(ctx context.Context, userID int64) string {
	list, err := h.orders.ListUserOrders(ctx, userID, orders.DefaultUserOrdersLimit)
	if err != nil {
		return TextTryAgain
	}
	return ordersText(list)
}

// failure picks the chat text for a service error; details are logged by the services.
func (h *Handler) failure(err error) string {
	switch {
	case errors.Is(err, cart.ErrItemNotInCart):
		return TextNotInCart
	case errors.Is(err, cart.ErrInvalidQuantity):
		return TextMaxQuantity
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return TextItemNotFound
	case apperr.KindEmptyCart:
		return TextEmptyCart
	}
	return TextTryAgain
}

// edit replaces the pressed message, or sends a new one when it is gone.
func (h *Handler) edit(q *tgbotapi.CallbackQuery, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if q.Message == nil || q.Message.Chat == nil {
		msg := tgbotapi.NewMessage(q.From.ID, text)
		msg.ReplyMarkup = kb
		h.send(msg)
		return
	}
	h.send(tgbotapi.NewEditMessageTextAndMarkup(q.Message.Chat.ID, q.Message.MessageID, text, kb))
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn("bot.send", err, nil)
	}
}

func (h *Handler) cartMarkup(items []cart.Item) tgbotapi.InlineKeyboardMarkup {
	return cartKeyboard(items, h.nonce())
}

func newNonce() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

func chatOf(q *tgbotapi.CallbackQuery) int64 {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID
	}
	return q.From.ID
}
