package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
)

func button(text string, c Command) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data(c))
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnMenu), tgbotapi.NewKeyboardButton(BtnCart)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnOrders)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func categoriesKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu.Categories)+1)
	for _, c := range menu.Categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(c.Title(), Command{Action: ActionCategory, Arg: string(c)})))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(BtnCart, Command{Action: ActionCart})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemsKeyboard(items []menu.Item) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	for _, it := range items {
		label := fmt.Sprintf("%s · %s", it.Name, rub(it.Price))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, Command{Action: ActionItem, Arg: it.ID})))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Назад", Command{Action: ActionMenu})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemKeyboard(it menu.Item) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("🛒 Добавить в корзину", Command{Action: ActionAdd, Arg: it.ID})),
		tgbotapi.NewInlineKeyboardRow(
			button("⬅️ Назад", Command{Action: ActionCategory, Arg: string(it.Category)}),
			button(BtnCart, Command{Action: ActionCart}),
		),
	)
}

// cartKeyboard renders the cart controls. nonce keys the checkout button, so
// repeated presses of one rendered button place one order.
func cartKeyboard(items []cart.Item, nonce string) tgbotapi.InlineKeyboardMarkup {
	if len(items) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(button(BtnMenu, Command{Action: ActionMenu})))
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+2)
	for _, it := range items {
		id := it.MenuItem.ID
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("➖", Command{Action: ActionDec, Arg: id}),
			button(fmt.Sprintf("%s × %d", it.MenuItem.Name, it.Quantity), Command{Action: ActionItem, Arg: id}),
			button("➕", Command{Action: ActionInc, Arg: id}),
			button("❌", Command{Action: ActionRemove, Arg: id}),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			button("🗑 Очистить", Command{Action: ActionClear}),
			button("✅ Оформить заказ", Command{Action: ActionCheckout, Arg: nonce}),
		),
		tgbotapi.NewInlineKeyboardRow(button(BtnMenu, Command{Action: ActionMenu})),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// AdminStatusKeyboard offers the next lifecycle step; terminal orders get none.
func AdminStatusKeyboard(orderID string, current orders.Status) (tgbotapi.InlineKeyboardMarkup, bool) {
	next, ok := current.Next()
	if !ok {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		button("➡️ "+next.Title(), Command{Action: ActionStatus, Arg: orderID, Status: next}),
	)), true
}
