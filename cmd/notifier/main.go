package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/config"
	kafkax "github.com/ariefcatur/go-commerce-ledger/internal/kafka"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/notification"
	"github.com/ariefcatur/go-commerce-ledger/internal/postgres"
	"github.com/ariefcatur/go-commerce-ledger/internal/telemetry"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(logger.Options{
		Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output, File: cfg.Log.File,
		Service: cfg.ServiceName + "-notifier",
	})
	if err != nil {
		slog.Error("logger", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := telemetry.Init(ctx, cfg.ServiceName+"-notifier", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("telemetry init", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	// DB
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", slog.Any("err", err))
		os.Exit(1)
	}
	defer pool.Close()
	db := postgres.New(pool, cfg.RevenueTZ)

	svc := notification.NewService(db, log)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, cfg.OrdersTopic, cfg.NotifierWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("notifier consumer started",
			slog.String("group", cfg.NotifierGroup),
			slog.String("topic", cfg.OrdersTopic),
			slog.Int("workers", cfg.NotifierWorkers))
		if err := cons.Start(ctx, svc.Handle); err != nil {
			log.Error("consumer exit", slog.Any("err", err))
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
	log.Info("shutting down consumer")
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("consumer did not stop in time")
	}
}
