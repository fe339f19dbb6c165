package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	handler "github.com/voyagio/payment-service/internal/adapter/handler/http"
	"github.com/voyagio/payment-service/internal/breaker"
	"github.com/voyagio/payment-service/internal/config"
	"github.com/voyagio/payment-service/internal/gateway"
	"github.com/voyagio/payment-service/internal/infrastructure/database"
	infrahttp "github.com/voyagio/payment-service/internal/infrastructure/http"
	"github.com/voyagio/payment-service/internal/logging"
	"github.com/voyagio/payment-service/internal/notify"
	"github.com/voyagio/payment-service/internal/usecase"
	"github.com/voyagio/payment-service/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting payment service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("version", cfg.Service.Version))

	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db)
	gateways := gateway.NewFactory(cfg.Gateways, logger)
	breakers := breaker.NewRegistry(breaker.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Window:           cfg.Breaker.Window.Std(),
		ResetTimeout:     cfg.Breaker.ResetTimeout.Std(),
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
	}, logger)
	sink := notify.NewLogSink(logger)

	paymentService := usecase.NewPaymentService(
		repos.Payments, repos.Bookings, gateways, breakers, sink,
		cfg.Service.ConfirmDegrade, logger)
	webhookService := usecase.NewWebhookService(
		repos.Webhooks, repos.Payments, repos.Bookings, gateways, sink,
		cfg.Webhook.MaxAttempts, logger)

	dispatcher := worker.NewDispatcher(repos.Webhooks, webhookService, cfg.Webhook, logger)
	webhookService.AttachQueue(dispatcher)
	dispatcher.Start()

	server := infrahttp.NewServer(
		cfg.Server.HTTP,
		handler.NewPaymentHandler(paymentService, logger),
		handler.NewWebhookHandler(webhookService, logger),
		breakers,
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	dispatcher.Stop()

	logger.Info("payment service stopped")
}
