package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	fail map[int64]bool
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func setup(t *testing.T, admins ...int64) (*Service, *fakeSender, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fs := &fakeSender{fail: map[int64]bool{}}
	return &Service{Sender: fs, Redis: rdb, Admins: admins, Log: logger.Discard(), Name: "notifier"}, fs, mr
}

func message(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "test", "5", payload)
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func created() orders.OrderCreatedPayload {
	return orders.OrderCreatedPayload{
		OrderID:   "5",
		UserID:    42,
		Username:  "ivan",
		FirstName: "Ivan",
		Items: []orders.ItemPrice{
			{MenuItemID: "1", Name: "Шаурма классическая", Qty: 2, Price: decimal.NewFromInt(250)},
		},
		TotalPrice: decimal.NewFromInt(500),
	}
}

func TestOrderCreatedNotifiesAdminsOnce(t *testing.T) {
	svc, fs, _ := setup(t, 100, 200)
	m := message(t, orders.EventOrderCreated, created())

	require.NoError(t, svc.Handle(context.Background(), m))
	require.NoError(t, svc.Handle(context.Background(), m))

	require.Len(t, fs.sent, 2)
	assert.Equal(t, int64(100), fs.sent[0].ChatID)
	assert.Contains(t, fs.sent[0].Text, "Заказ #5")
	assert.Contains(t, fs.sent[0].Text, "Ivan (@ivan)")
	assert.Contains(t, fs.sent[0].Text, "Шаурма классическая × 2 = 500 ₽")

	kb, ok := fs.sent[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "status:5:confirmed", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestStatusChangedNotifiesCustomer(t *testing.T) {
	svc, fs, _ := setup(t, 100)
	m := message(t, orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID: "5", UserID: 42, From: orders.StatusConfirmed, To: orders.StatusPreparing,
	})

	require.NoError(t, svc.Handle(context.Background(), m))
	require.Len(t, fs.sent, 1)
	assert.Equal(t, int64(42), fs.sent[0].ChatID)
	assert.Equal(t, "Заказ #5: "+orders.StatusPreparing.Title(), fs.sent[0].Text)
}

func TestFailedDeliveryReleasesClaim(t *testing.T) {
	svc, fs, mr := setup(t, 100)
	fs.fail[100] = true
	m := message(t, orders.EventOrderCreated, created())

	require.Error(t, svc.Handle(context.Background(), m))
	assert.Empty(t, mr.Keys())

	fs.fail[100] = false
	require.NoError(t, svc.Handle(context.Background(), m))
	assert.Len(t, fs.sent, 1)
}

func TestPartialDeliveryKeepsClaim(t *testing.T) {
	svc, fs, mr := setup(t, 100, 200)
	fs.fail[200] = true

	require.NoError(t, svc.Handle(context.Background(), message(t, orders.EventOrderCreated, created())))
	assert.Len(t, fs.sent, 1)
	assert.Len(t, mr.Keys(), 1)
}

func TestIgnoresForeignEventsAndRejectsGarbage(t *testing.T) {
	svc, fs, _ := setup(t, 100)

	require.NoError(t, svc.Handle(context.Background(), message(t, "StockReserved", map[string]string{})))
	assert.Empty(t, fs.sent)

	assert.Error(t, svc.Handle(context.Background(), kafkago.Message{Value: []byte("{")}))
}
