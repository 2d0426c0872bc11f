package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/order-notifier/internal/config"
	"github.com/kursadbilgin/order-notifier/internal/gateway"
	infraredis "github.com/kursadbilgin/order-notifier/internal/infra/redis"
	"github.com/kursadbilgin/order-notifier/internal/observability"
	"github.com/kursadbilgin/order-notifier/internal/queue"
	"github.com/kursadbilgin/order-notifier/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewSMSRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	consumer := queue.NewRabbitMQConsumer(broker, cfg.WorkerPrefetch, logger)
	defer consumer.Close()

	smsGateway, err := gateway.NewAfricasTalkingGateway(
		cfg.SMSAPIURL,
		cfg.SMSUsername,
		cfg.SMSAPIKey,
		cfg.SMSSenderID,
		cfg.GatewayTimeout(),
	)
	if err != nil {
		logger.Fatal("sms gateway initialization failed", zap.Error(err))
	}

	worker, err := service.NewWorkerService(
		consumer,
		smsGateway,
		rateLimiter,
		cfg.SMSSenderID,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	worker.SetMetrics(metrics)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("order-notifier worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("prefetch", cfg.WorkerPrefetch),
		zap.Int("metricsPort", cfg.MetricsPort),
	)

	if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}

	logger.Info("order-notifier worker stopped")
}
