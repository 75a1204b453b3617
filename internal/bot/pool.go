package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run feeds updates to a fixed set of workers. Updates from one user always
// land on the same worker, so a user's button presses apply in order.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update, workers int) {
	if workers <= 0 {
		workers = 1
	}
	queues := make([]chan tgbotapi.Update, workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, 16)
		wg.Add(1)
		go func(id int, in <-chan tgbotapi.Update) {
			defer wg.Done()
			for u := range in {
				h.safeHandle(ctx, id, u)
			}
		}(i, queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			q := queues[int(uint64(senderID(u))%uint64(workers))]
			select {
			case q <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Handler) safeHandle(ctx context.Context, worker int, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("bot.panic", fmt.Errorf("%v", r), map[string]any{"worker": worker, "update_id": u.UpdateID})
		}
	}()
	h.HandleUpdate(ctx, u)
}

func senderID(u tgbotapi.Update) int64 {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	}
	return 0
}
