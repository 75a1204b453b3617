// Package notifier delivers order events to Telegram chats.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/bot"
	kafkax "github.com/ivan-hilckov/shawarma-bot-sub000/internal/kafka"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Service struct {
	Sender Sender
	Redis  redis.Cmdable
	Admins []int64
	Log    *logger.Logger
	// Name namespaces dedup keys.
	Name string
}

// Handle is installed as the consumer handler. A returned error leaves the
// message uncommitted.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	var deliver func(context.Context, orders.Envelope) (int, error)
	switch env.EventType {
	case orders.EventOrderCreated:
		deliver = s.orderCreated
	case orders.EventOrderStatusChanged:
		deliver = s.statusChanged
	default:
		return nil
	}

	dkey := redisx.DedupKey(s.Name, env.EventID)
	won, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("claim %s: %w", dkey, err)
	}
	if !won {
		s.Log.Debug("notifier.duplicate", map[string]any{"event_id": env.EventID})
		return nil
	}

	delivered, err := deliver(ctx, env)
	if err != nil && delivered == 0 {
		// Nothing went out; let the redelivery try again.
		if derr := s.Redis.Del(ctx, dkey).Err(); derr != nil {
			s.Log.Warn("notifier.release_claim", derr, map[string]any{"event_id": env.EventID})
		}
		return err
	}
	if err != nil {
		s.Log.Warn("notifier.partial_delivery", err, map[string]any{"event_id": env.EventID, "delivered": delivered})
	}
	return nil
}

func (s *Service) orderCreated(ctx context.Context, env orders.Envelope) (int, error) {
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return 0, err
	}
	text := bot.AdminOrderText(p.OrderID, bot.CustomerName(p.Username, p.FirstName), p.Items, p.TotalPrice, orders.StatusPending)
	kb, _ := bot.AdminStatusKeyboard(p.OrderID, orders.StatusPending)

	var errs []error
	delivered := 0
	for _, chatID := range s.Admins {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = kb
		if _, err := s.Sender.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", chatID, err))
			continue
		}
		delivered++
	}
	s.Log.Info("notifier.order_created", map[string]any{"order_id": p.OrderID, "admins": delivered})
	return delivered, errors.Join(errs...)
}

func (s *Service) statusChanged(ctx context.Context, env orders.Envelope) (int, error) {
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return 0, err
	}
	if _, err := s.Sender.Send(tgbotapi.NewMessage(p.UserID, bot.StatusChangedText(p.OrderID, p.To))); err != nil {
		return 0, fmt.Errorf("customer %d: %w", p.UserID, err)
	}
	s.Log.Info("notifier.status_changed", map[string]any{"order_id": p.OrderID, "to": p.To})
	return 1, nil
}
