package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/config"
	kafkax "github.com/ivan-hilckov/shawarma-bot-sub000/internal/kafka"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/notifier"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.ServiceName + "-notifier")
	if cfg.BotToken == "" {
		log.Error("notifier.config", errors.New("BOT_TOKEN is not set"), nil)
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(redisx.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("notifier.telegram_auth", err, nil)
		os.Exit(1)
	}

	svc := &notifier.Service{
		Sender: api,
		Redis:  rdb,
		Admins: cfg.AdminChatIDs,
		Log:    log,
		Name:   "notifier",
	}

	topics := []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, topics, cfg.KafkaWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("notifier.started", map[string]any{"group": cfg.KafkaGroup, "topics": topics, "workers": cfg.KafkaWorkers})
		if err := cons.Start(ctx, svc.Handle); err != nil {
			log.Error("notifier.consumer_exit", err, nil)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("notifier.shutdown", nil)
	cancel()
	<-done
}
