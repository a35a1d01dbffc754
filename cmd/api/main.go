package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/money"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logx.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.Options{})
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentCreated, 1024, logger)
	prod.Start(ctx)

	// Backend client & catalog
	backend, err := api.New(cfg.BackendURL, api.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		logger.Fatal("backend client", zap.Error(err))
	}
	shipping, err := checkout.LoadShipping(cfg.ShippingCatalog)
	if err != nil {
		logger.Fatal("shipping catalog", zap.Error(err))
	}

	reg := app.NewRegistry(backend, &redisx.SessionStore{RDB: rdb},
		app.WithCartWindow(cfg.CartSyncWindow),
		app.WithSyncTimeout(cfg.HTTPTimeout),
		app.WithLogger(logger),
	)
	go reg.Run(ctx, time.Minute, 30*time.Minute)

	router := httpx.NewRouter(logger)
	h := &httpx.Handler{
		Registry:     reg,
		Attempts:     &orders.AttemptRepo{DB: db},
		Locker:       &redisx.SubmitLock{RDB: rdb},
		Status:       &redisx.StatusCache{RDB: rdb},
		Events:       prod,
		Shipping:     shipping,
		AdminFee:     money.Parse(cfg.AdminFee, decimal.NewFromInt(2500)),
		Service:      cfg.ServiceName,
		CookieSecure: cfg.CookieSecure,
		Log:          logger,
	}
	h.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	reg.Close(ctx2)   // flush pending cart syncs
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
