package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/paywatch"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-tracker"
	logger, err := logx.New(cfg.LogLevel, service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.Options{MaxConns: int32(cfg.TrackerWorkers)})
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Backend client dengan service token
	backend, err := api.New(cfg.BackendURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokenSource(api.StaticToken(cfg.TrackerToken)),
	)
	if err != nil {
		logger.Fatal("backend client", zap.Error(err))
	}

	// Producer: payment.status.changed
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentStatusChanged, 1024, logger)
	prod.Start(ctx)

	// Service
	svc := &paywatch.Service{
		Fetch:       backend,
		Dedup:       &redisx.Dedup{RDB: rdb, Service: "payment-tracker"},
		Attempts:    &orders.AttemptRepo{DB: db},
		Cache:       &redisx.StatusCache{RDB: rdb},
		Events:      prod,
		Interval:    cfg.PollInterval,
		ExpiryGrace: cfg.PollExpiryGrace,
		MaxWatch:    cfg.MaxWatchDuration,
		ServiceName: service,
		Log:         logger,
	}

	// Consumer: tiap worker memantau satu payment sampai selesai
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.TrackerGroup, orders.TopicPaymentCreated, cfg.TrackerWorkers, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("payment tracker started",
			zap.String("group", cfg.TrackerGroup),
			zap.String("topic", orders.TopicPaymentCreated),
			zap.Int("workers", cfg.TrackerWorkers))
		if err := cons.Start(ctx, svc.HandlePaymentCreated); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer...")
	cancel()
	<-done // workers selesai & reader tertutup
	prod.Close()
	prod.WaitClosed()
}
