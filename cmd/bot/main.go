package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/bot"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/cart"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/config"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/httpx"
	kafkax "github.com/ivan-hilckov/shawarma-bot-sub000/internal/kafka"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/logger"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/metrics"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/postgres"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/ratelimit"
	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.ServiceName + "-bot")
	if cfg.BotToken == "" {
		log.Error("bot.config", errors.New("BOT_TOKEN is not set"), nil)
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := menu.Default()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{
		MaxConns:       cfg.PGMaxConns,
		MinConns:       cfg.PGMinConns,
		MaxConnIdle:    cfg.PGMaxConnIdle,
		ConnectTimeout: cfg.PGConnectTimeout,
	})
	if err != nil {
		log.Error("bot.db_connect", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(redisx.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	m := metrics.New("bot", nil)
	store := cart.NewStore(rdb, cfg.CartTTL, log)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("bot.telegram_auth", err, nil)
		os.Exit(1)
	}
	log.Info("bot.authorized", map[string]any{"username": api.Self.UserName})

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	stopSweep := make(chan struct{})
	go limiter.Run(time.Minute, stopSweep)

	h := bot.New(bot.Deps{
		API:  api,
		Cart: cart.NewService(store, catalog, log, m),
		Orders: orders.NewService(orders.Deps{
			Repo:      &orders.Repo{DB: db},
			Cart:      store,
			Menu:      catalog,
			Idem:      &redisx.IdempotencyCache{RDB: rdb},
			Publisher: &orders.KafkaPublisher{Producer: prod},
			Recorder:  m,
			Log:       log,
			Producer:  cfg.ServiceName + "-bot",
		}),
		Menu:    catalog,
		Limiter: limiter,
		Admins:  cfg.AdminChatIDs,
		Log:     log,
	})

	// health + metrics only
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpx.NewRouter(httpx.RouterOptions{Metrics: m}), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := <-httpx.Serve(srv); err != nil {
			log.Error("bot.listen", err, nil)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("bot.polling", map[string]any{"workers": cfg.BotWorkers})
		h.Run(ctx, updates, cfg.BotWorkers)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("bot.shutdown", nil)

	api.StopReceivingUpdates()
	cancel()
	<-done

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	close(stopSweep)
	prod.Close()
	prod.WaitClosed()
}
