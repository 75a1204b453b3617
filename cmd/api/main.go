package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	log := logger.New(cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := menu.Default()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{
		MaxConns:       cfg.PGMaxConns,
		MinConns:       cfg.PGMinConns,
		MaxConnIdle:    cfg.PGMaxConnIdle,
		ConnectTimeout: cfg.PGConnectTimeout,
	})
	if err != nil {
		log.Error("api.db_connect", err, nil)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("api.migrate", err, nil)
			os.Exit(1)
		}
		if err := postgres.SyncMenu(ctx, db, catalog.All()); err != nil {
			log.Error("api.sync_menu", err, nil)
			os.Exit(1)
		}
	}

	// Redis
	rdb := redisx.New(redisx.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	m := metrics.New("api", nil)
	store := cart.NewStore(rdb, cfg.CartTTL, log)
	m.RegisterActiveCarts(store.GetActiveCartsCount)

	orderSvc := orders.NewService(orders.Deps{
		Repo:      &orders.Repo{DB: db},
		Cart:      store,
		Menu:      catalog,
		Idem:      &redisx.IdempotencyCache{RDB: rdb},
		Publisher: &orders.KafkaPublisher{Producer: prod},
		Recorder:  m,
		Log:       log,
		Producer:  cfg.ServiceName,
	})

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	stopSweep := make(chan struct{})
	go limiter.Run(time.Minute, stopSweep)

	router := httpx.NewRouter(httpx.RouterOptions{Metrics: m})
	api := &httpx.API{
		Cart:       cart.NewService(store, catalog, log, m),
		Orders:     orderSvc,
		Menu:       catalog,
		Limiter:    limiter,
		AdminToken: cfg.AdminAPIToken,
	}
	api.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	log.Info("api.listen", map[string]any{"addr": cfg.HTTPAddr})
	listenErr := httpx.Serve(srv)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case <-sig:
	case err := <-listenErr:
		log.Error("api.listen", err, nil)
		exitCode = 1
	}
	log.Info("api.shutdown", nil)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	close(stopSweep)
	prod.Close()
	prod.WaitClosed()
	if exitCode != 0 {
		rdb.Close()
		db.Close()
		os.Exit(exitCode)
	}
}
