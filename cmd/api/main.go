package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/config"
	"github.com/ariefcatur/go-commerce-ledger/internal/httpx"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-ledger/internal/kafka"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/notification"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/ariefcatur/go-commerce-ledger/internal/payment"
	"github.com/ariefcatur/go-commerce-ledger/internal/postgres"
	"github.com/ariefcatur/go-commerce-ledger/internal/redisx"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/ariefcatur/go-commerce-ledger/internal/telemetry"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(logger.Options{
		Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output, File: cfg.Log.File,
		Service: cfg.ServiceName,
	})
	if err != nil {
		slog.Error("logger", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("telemetry init", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn("telemetry shutdown", slog.Any("err", err))
		}
	}()

	// DB
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", slog.Any("err", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool, log); err != nil {
		log.Error("db migrate", slog.Any("err", err))
		os.Exit(1)
	}
	db := postgres.New(pool, cfg.RevenueTZ)

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unavailable, cache and dedup will fail open", slog.Any("err", err))
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.OrdersTopic, 1024, log)
	prod.Start(ctx)

	// Core
	orderSvc := orders.NewService(db, db,
		inventory.NewGuard(cfg.StockCap, log),
		revenue.NewLedger(cfg.RevenueLocation(), log),
		log)
	orderSvc.Publisher = prod
	orderSvc.Cache = redisx.NewStatusCache(rdb)
	orderSvc.Producer = cfg.ServiceName

	vnp := &payment.VNPay{
		TmnCode:    cfg.VNPay.TmnCode,
		HashSecret: cfg.VNPay.HashSecret,
		PayURL:     cfg.VNPay.PayURL,
		ReturnURL:  cfg.VNPay.ReturnURL,
	}
	stripe := &payment.Stripe{WebhookSecret: cfg.Stripe.WebhookSecret, Tolerance: cfg.Stripe.Tolerance}
	reconciler := payment.NewReconciler(orderSvc, log, vnp, stripe)
	reconciler.Dedup = redisx.NewDedup(rdb)

	// HTTP
	authn := httpx.Authenticate(auth.NewVerifier(cfg.JWTSecret))
	router := httpx.NewRouter(log)
	(&httpx.OrdersHandler{Orders: orderSvc, Log: log}).Register(router, authn)
	(&httpx.CartsHandler{Carts: cart.NewService(db, log), Log: log}).Register(router, authn)
	(&httpx.RevenuesHandler{Reports: revenue.NewReporter(db), Log: log}).Register(router, authn)
	(&httpx.NotificationsHandler{Notifications: notification.NewService(db, log), Log: log}).Register(router, authn)
	(&httpx.PaymentsHandler{
		Checkout:   &payment.Checkout{VNPay: vnp, Orders: orderSvc},
		Reconciler: reconciler,
		ResultURL:  cfg.PaymentResultURL,
		Log:        log,
	}).Register(router, authn)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", slog.Any("err", err))
			cancel()
		}
	}()

	// wait for a signal or a fatal server error
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown incomplete", slog.Any("err", err))
	}
	prod.Close()      // stop accepting, flush queued events
	prod.WaitClosed() // writer closed
	cancel()
}
