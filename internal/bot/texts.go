package bot

import (
	"fmt"
	"strings"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/shopspring/decimal"
)

// Reply keyboard labels double as commands.
const (
	BtnMenu   = "🍽 Меню"
	BtnCart   = "🛒 Корзина"
	BtnOrders = "📋 Мои заказы"
)

const (
	TextWelcome       = "Добро пожаловать в шаурмичную! 🌯\nВыберите, что хотите заказать."
	TextChooseCat     = "Выберите категорию:"
	TextUnknown       = "Не понимаю команду. Воспользуйтесь меню ниже."
	TextEmptyCart     = "🛒 Корзина пуста"
	TextItemNotFound  = "Товар не найден"
	TextNotInCart     = "Товара нет в корзине"
	TextCartCleared   = "Корзина очищена"
	TextMaxQuantity   = "Максимум 99 шт."
	TextTryAgain      = "Произошла ошибка, попробуйте ещё раз"
	TextTooMany       = "Слишком много запросов, подождите немного"
	TextNoOrders      = "У вас пока нет заказов"
	TextAdminOnly     = "Недостаточно прав"
	TextBadStatus     = "Статус уже изменён"
	TextUnknownButton = "Кнопка устарела"
)

func rub(d decimal.Decimal) string { return d.StringFixed(0) + " ₽" }

func itemText(it menu.Item) string {
	return fmt.Sprintf("%s\n\n%s\n\n💰 Цена: %s", it.Name, it.Description, rub(it.Price))
}

func addedText(it menu.Item) string {
	return fmt.Sprintf("✅ %s добавлен в корзину", it.Name)
}

func cartText(v cart.View) string {
	if len(v.Items) == 0 {
		return TextEmptyCart
	}
	var b strings.Builder
	b.WriteString("🛒 Ваша корзина:\n\n")
	for i, it := range v.Items {
		fmt.Fprintf(&b, "%d. %s\n   %s × %d = %s\n", i+1, it.MenuItem.Name, rub(it.MenuItem.Price), it.Quantity, rub(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\nТоваров: %d\n💰 Итого: %s", v.ItemsCount, rub(v.Total))
	return b.String()
}

func checkoutText(res orders.CheckoutResult) string {
	if res.Replayed {
		return fmt.Sprintf("Заказ #%s уже оформлен. Мы сообщим, когда он будет готов.", res.OrderID)
	}
	return fmt.Sprintf("✅ Заказ #%s оформлен!\n\nТоваров: %d\nСумма: %s\nСтатус: %s\n\nМы сообщим, когда он будет готов.",
		res.OrderID, res.ItemsCount, rub(res.Total), orders.StatusPending.Title())
}

func ordersText(list []orders.Order) string {
	if len(list) == 0 {
		return TextNoOrders
	}
	var b strings.Builder
	b.WriteString("📋 Ваши заказы:\n")
	for _, o := range list {
		fmt.Fprintf(&b, "\n#%d от %s\n%s · %s\n", o.ID, o.CreatedAt.Format("02.01.2006 15:04"), rub(o.TotalPrice), o.Status.Title())
		for _, it := range o.Items {
			fmt.Fprintf(&b, "  • %s × %d\n", it.Name, it.Quantity)
		}
	}
	return b.String()
}

// AdminOrderText renders a new or updated order for admin chats.
func AdminOrderText(orderID, customer string, items []orders.ItemPrice, total decimal.Decimal, status orders.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Заказ #%s\nКлиент: %s\n\n", orderID, customer)
	for _, it := range items {
		fmt.Fprintf(&b, "• %s × %d = %s\n", it.Name, it.Qty, rub(it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))))
	}
	fmt.Fprintf(&b, "\n💰 Итого: %s\nСтатус: %s", rub(total), status.Title())
	return b.String()
}

// StatusChangedText is sent to the customer.
func StatusChangedText(orderID string, to orders.Status) string {
	return fmt.Sprintf("Заказ #%s: %s", orderID, to.Title())
}

// CustomerName formats a user for admin messages.
func CustomerName(username, firstName string) string {
	if username != "" {
		return firstName + " (@" + username + ")"
	}
	return firstName
}
